// Package ownership implements the TML move/borrow analyzer (spec.md
// §4.5): affine-binding move tracking, shared/exclusive borrow conflict
// detection, return-lifetime checking, and drop-scope insertion.
//
// The borrow liveness model here is a conservative lexical-scope
// approximation of spec.md's non-lexical lifetimes: a borrow is considered
// live from its creation to the end of the innermost block it was created
// in, rather than to its syntactic last use. Relative to a full NLL
// analysis, a borrow that a precise analysis would already consider dead
// may still be reported as conflicting (a false positive); no borrow is
// treated as ended before the end of the block that created it. This is
// the tradeoff noted in DESIGN.md. One non-lexical case is checked
// directly rather than approximated: moving a binding out from under a
// borrow that is still outstanding (consumeIfMove) is always a genuine
// lifetime violation regardless of lexical scope, so it is reported as
// LifetimeTooShort at the move site itself.
package ownership

import (
	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
	"github.com/hivellm/tmlc/types"
)

// State is a binding's ownership state (spec.md §3 "Ownership state").
type State int

const (
	StateOwned State = iota
	StateMoved
	StateBorrowedShared
	StateBorrowedExclusive
	StateConsumed
	StateDropped
)

type binding struct {
	name        string
	copyType    bool
	isParam     bool
	isRef       bool
	declIdx     int
	state       State
	sharedCount int
}

// env is one lexical scope of bindings, chained to its parent for lookup.
type env struct {
	parent   *env
	bindings map[string]*binding
	order    []*binding // declaration order, for reverse-order drop scheduling

	// borrows records every borrow created directly by a statement in this
	// scope (not one of its own nested blocks, which record and release
	// their own), so checkBlock can release them against the outer binding
	// they target once this block's own lexical scope ends.
	borrows []borrowEvent
}

type borrowEvent struct {
	target *binding
	mut    bool
}

func newEnv(parent *env) *env {
	return &env{parent: parent, bindings: map[string]*binding{}}
}

func (e *env) declare(b *binding) {
	e.bindings[b.name] = b
	e.order = append(e.order, b)
}

func (e *env) lookup(name string) *binding {
	for sc := e; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			return b
		}
	}
	return nil
}

// bindingSnapshot is one binding's ownership/borrow state captured at a
// branch point, so a branch's analysis can run against a clean copy and the
// caller can later restore or merge without the branches seeing each
// other's moves and borrows as if they both actually ran (they never do:
// `if`/`when` branches are mutually exclusive at runtime).
type bindingSnapshot struct {
	state       State
	sharedCount int
}

// snapshotEnv captures every binding visible from e, across the whole scope
// chain, since a branch body can move or borrow an outer binding as easily
// as one of its own.
func snapshotEnv(e *env) map[*binding]bindingSnapshot {
	out := map[*binding]bindingSnapshot{}
	for sc := e; sc != nil; sc = sc.parent {
		for _, b := range sc.order {
			if _, ok := out[b]; !ok {
				out[b] = bindingSnapshot{state: b.state, sharedCount: b.sharedCount}
			}
		}
	}
	return out
}

func restoreEnv(snap map[*binding]bindingSnapshot) {
	for b, s := range snap {
		b.state = s.state
		b.sharedCount = s.sharedCount
	}
}

// mergeBranchStates joins an `if`'s two mutually exclusive branches back
// into one state: a binding moved in either branch is moved afterward (the
// conservative, sound choice — a use past the merge point could be on the
// path that moved it), and borrow counts take the branch that borrowed
// more. before holds each binding's pre-branch snapshot; afterThen holds
// its post-Then snapshot; the live *binding values already hold the
// post-Else outcome when this runs.
func mergeBranchStates(before, afterThen map[*binding]bindingSnapshot) {
	for b, prev := range before {
		then := afterThen[b]
		if then.state == StateMoved || b.state == StateMoved {
			b.state = StateMoved
		} else {
			b.state = prev.state
		}
		if then.sharedCount > b.sharedCount {
			b.sharedCount = then.sharedCount
		}
	}
}

// DropPlan records, per block, the locally owned bindings still live at the
// block's natural (fallthrough) exit, in reverse declaration order — the
// drop-call schedule spec.md §4.5 "Drop insertion" describes. No other
// pass reads it: the IR canonicalizer and the LLVM emitter emit no drop
// calls from it.
type DropPlan struct {
	Exits map[*ast.Block][]string
}

// Analyzer runs spec.md §4.5 over one resolver.Program, using a
// types.Checker's annotation table to know which bindings are Copy.
type Analyzer struct {
	sink    *reporter.Sink
	program *resolver.Program
	checker *types.Checker

	Drops *DropPlan
}

// NewAnalyzer returns an Analyzer. checker must already have had Check()
// run so its Types table is populated.
func NewAnalyzer(sink *reporter.Sink, program *resolver.Program, checker *types.Checker) *Analyzer {
	return &Analyzer{
		sink:    sink,
		program: program,
		checker: checker,
		Drops:   &DropPlan{Exits: map[*ast.Block][]string{}},
	}
}

// Check walks every function and method body in program.
func (a *Analyzer) Check() {
	for _, m := range a.program.Order {
		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.FuncDecl:
				a.checkFunc(v)
			case *ast.ImplDecl:
				for _, fn := range v.Methods {
					a.checkFunc(fn)
				}
			}
		}
	}
}

func (a *Analyzer) typeOf(e ast.Expr) *types.Type {
	if e == nil {
		return nil
	}
	return a.checker.Types[e.NodeID()]
}

func (a *Analyzer) isCopy(e ast.Expr) bool {
	t := a.typeOf(e)
	if t == nil {
		return true // unknown type: assume Copy so we never falsely flag a move
	}
	return t.IsCopy()
}

func (a *Analyzer) checkFunc(fn *ast.FuncDecl) {
	if fn.Body == nil {
		return
	}
	top := newEnv(nil)
	idx := 0
	if fn.Receiver != nil {
		top.declare(&binding{name: fn.Receiver.Name, copyType: true, isParam: true, isRef: true, declIdx: idx})
		idx++
	}
	for _, p := range fn.Params {
		_, isRef := p.Type.(*ast.RefType)
		top.declare(&binding{name: p.Name, copyType: isRef, isParam: true, isRef: isRef, declIdx: idx})
		idx++
	}
	a.checkBlock(top, fn.Body, &idx, fn.Params)
}

// checkBlock walks one block's statements, schedules its fallthrough drop
// set, and releases any borrow of an outer binding that was created
// directly in this block — a borrow's lifetime never outlives the
// innermost block it was taken in (the package doc comment's "lexical-scope
// approximation"), so the borrowed-from binding must be usable again by the
// time control reaches this block's own exit.
func (a *Analyzer) checkBlock(parent *env, b *ast.Block, idx *int, params []ast.Param) {
	if b == nil {
		return
	}
	e := newEnv(parent)
	for _, s := range b.Stmts {
		a.checkStmt(e, s, idx, b)
	}
	if b.Tail != nil {
		a.readExpr(e, b.Tail)
	}

	for _, be := range e.borrows {
		if be.mut {
			be.target.state = StateOwned
		} else if be.target.sharedCount > 0 {
			be.target.sharedCount--
		}
	}

	var live []string
	for i := len(e.order) - 1; i >= 0; i-- {
		bd := e.order[i]
		if bd.state == StateOwned && !bd.copyType && !bd.isParam {
			live = append(live, bd.name)
		}
	}
	a.Drops.Exits[b] = live
}

func (a *Analyzer) checkStmt(e *env, s ast.Stmt, idx *int, owningBlock *ast.Block) {
	switch v := s.(type) {
	case *ast.LetStmt:
		a.readExpr(e, v.Value)
		a.consumeIfMove(e, v.Value)
		*idx++
		e.declare(&binding{name: v.Name, copyType: a.isCopy(v.Value), declIdx: *idx})
	case *ast.AssignStmt:
		a.checkAssignTarget(e, v.Target)
		a.readExpr(e, v.Value)
		a.consumeIfMove(e, v.Value)
	case *ast.ExprStmt:
		a.readExpr(e, v.X)
		a.consumeIfMove(e, v.X)
	case *ast.ReturnStmt:
		if v.Value != nil {
			a.readExpr(e, v.Value)
			a.checkReturnLifetime(e, v.Value)
			a.consumeIfMove(e, v.Value)
		}
	case *ast.BreakStmt:
		if v.Value != nil {
			a.readExpr(e, v.Value)
		}
	case *ast.IfStmt:
		a.readExpr(e, v.Cond)
		before := snapshotEnv(e)
		a.checkBlock(e, v.Then, idx, nil)
		afterThen := snapshotEnv(e)
		restoreEnv(before)
		a.checkBlock(e, v.Else, idx, nil)
		mergeBranchStates(before, afterThen)
	case *ast.WhenStmt:
		a.readExpr(e, v.Scrutinee)
		before := snapshotEnv(e)
		moved := map[*binding]bool{}
		maxShared := map[*binding]int{}
		for _, arm := range v.Arms {
			restoreEnv(before)
			if arm.Guard != nil {
				a.readExpr(e, arm.Guard)
			}
			a.checkBlock(e, arm.Body, idx, nil)
			for b := range before {
				if b.state == StateMoved {
					moved[b] = true
				}
				if b.sharedCount > maxShared[b] {
					maxShared[b] = b.sharedCount
				}
			}
		}
		restoreEnv(before)
		for b, snap := range before {
			if moved[b] {
				b.state = StateMoved
			} else {
				b.state = snap.state
			}
			if maxShared[b] > b.sharedCount {
				b.sharedCount = maxShared[b]
			}
		}
	case *ast.ForStmt:
		a.readExpr(e, v.Iter)
		a.checkBlock(e, v.Body, idx, nil)
	case *ast.WhileStmt:
		a.readExpr(e, v.Cond)
		a.checkBlock(e, v.Body, idx, nil)
	case *ast.LoopStmt:
		a.checkBlock(e, v.Body, idx, nil)
	}
}

// readExpr walks e looking for uses of moved bindings (E0701) and for
// BorrowExpr sites, which it validates against the current borrow state of
// the place they name (E0702/E0703).
func (a *Analyzer) readExpr(e *env, expr ast.Expr) {
	if expr == nil {
		return
	}
	switch v := expr.(type) {
	case *ast.IdentExpr:
		if b := e.lookup(v.Name); b != nil && b.state == StateMoved {
			a.sink.Errorf(reporter.CategoryOwnership, "E0701", v.NodeSpan(),
				"use of moved value %q", v.Name)
		}
	case *ast.BorrowExpr:
		a.checkBorrow(e, v)
	case *ast.BinaryExpr:
		a.readExpr(e, v.Left)
		a.readExpr(e, v.Right)
	case *ast.UnaryExpr:
		a.readExpr(e, v.Operand)
	case *ast.CallExpr:
		a.readExpr(e, v.Callee)
		for _, arg := range v.Args {
			a.readExpr(e, arg)
			a.consumeIfMove(e, arg)
		}
	case *ast.MethodCallExpr:
		a.readExpr(e, v.Receiver)
		for _, arg := range v.Args {
			a.readExpr(e, arg)
			a.consumeIfMove(e, arg)
		}
	case *ast.FieldExpr:
		a.readExpr(e, v.Receiver)
	case *ast.IndexExpr:
		a.readExpr(e, v.Receiver)
		a.readExpr(e, v.Index)
	case *ast.SliceExpr:
		a.readExpr(e, v.Receiver)
		a.readExpr(e, v.Lo)
		a.readExpr(e, v.Hi)
	case *ast.ArrayLitExpr:
		for _, el := range v.Elems {
			a.readExpr(e, el)
			a.checkEscaping(e, el)
			a.consumeIfMove(e, el)
		}
	case *ast.TupleLitExpr:
		for _, el := range v.Elems {
			a.readExpr(e, el)
			a.checkEscaping(e, el)
			a.consumeIfMove(e, el)
		}
	case *ast.StructLitExpr:
		for _, f := range v.Fields {
			a.readExpr(e, f.Value)
			a.checkEscaping(e, f.Value)
			a.consumeIfMove(e, f.Value)
		}
	case *ast.RangeExpr:
		a.readExpr(e, v.Lo)
		a.readExpr(e, v.Hi)
	case *ast.IfExpr:
		a.readExpr(e, v.Cond)
		a.readExpr(e, v.Then)
		a.readExpr(e, v.Else)
	case *ast.WhenExpr:
		a.readExpr(e, v.Scrutinee)
		for _, arm := range v.Arms {
			if arm.Guard != nil {
				a.readExpr(e, arm.Guard)
			}
			a.readExpr(e, arm.Body)
		}
	case *ast.BlockExpr:
		// A nested block expression's own bindings are out of scope for this
		// function's simplified single-env walk; its reads still matter.
		for _, st := range v.Block.Stmts {
			if es, ok := st.(*ast.ExprStmt); ok {
				a.readExpr(e, es.X)
			}
		}
		if v.Block.Tail != nil {
			a.readExpr(e, v.Block.Tail)
		}
	case *ast.PropagateExpr:
		a.readExpr(e, v.Operand)
	case *ast.AwaitExpr:
		a.readExpr(e, v.Operand)
	case *ast.CoerceToDynExpr:
		a.readExpr(e, v.Operand)
	case *ast.ClosureExpr:
		a.checkClosure(e, v)
	}
}

// checkAssignTarget rejects writing through an owner while an exclusive
// borrow of it is outstanding (E0703 MutableAliasing) and clears a plain
// identifier target's moved state (reassignment revives a binding).
func (a *Analyzer) checkAssignTarget(e *env, target ast.Expr) {
	switch v := target.(type) {
	case *ast.IdentExpr:
		if b := e.lookup(v.Name); b != nil {
			if b.state == StateBorrowedExclusive || b.sharedCount > 0 {
				a.sink.Errorf(reporter.CategoryOwnership, "E0703", v.NodeSpan(),
					"cannot assign to %q while borrowed", v.Name)
				return
			}
			b.state = StateOwned
		}
	case *ast.FieldExpr:
		a.readExpr(e, v.Receiver)
	case *ast.IndexExpr:
		a.readExpr(e, v.Receiver)
		a.readExpr(e, v.Index)
	}
}

// checkBorrow validates one `ref`/`mut ref` site against spec.md §4.5's
// exclusivity rules, and marks the underlying place's borrow state.
func (a *Analyzer) checkBorrow(e *env, be *ast.BorrowExpr) {
	a.readExpr(e, be.Operand)
	ident, ok := be.Operand.(*ast.IdentExpr)
	if !ok {
		return // not a trackable place (e.g. a field or call result); nothing to flag
	}
	b := e.lookup(ident.Name)
	if b == nil {
		return
	}
	if be.Mut {
		if b.sharedCount > 0 {
			a.sink.Errorf(reporter.CategoryOwnership, "E0703", be.NodeSpan(),
				"cannot exclusively borrow %q: a shared borrow is outstanding", ident.Name)
			return
		}
		if b.state == StateBorrowedExclusive {
			a.sink.Errorf(reporter.CategoryOwnership, "E0702", be.NodeSpan(),
				"cannot exclusively borrow %q twice", ident.Name)
			return
		}
		b.state = StateBorrowedExclusive
		e.borrows = append(e.borrows, borrowEvent{target: b, mut: true})
	} else {
		if b.state == StateBorrowedExclusive {
			a.sink.Errorf(reporter.CategoryOwnership, "E0703", be.NodeSpan(),
				"cannot share-borrow %q: an exclusive borrow is outstanding", ident.Name)
			return
		}
		b.sharedCount++
		e.borrows = append(e.borrows, borrowEvent{target: b, mut: false})
	}
}

// consumeIfMove marks expr's binding (if it is a bare identifier of a
// non-Copy type) as moved. Copy bindings and anything already wrapped in a
// BorrowExpr are unaffected. Moving a binding while a borrow of it is still
// outstanding is rejected as E0706 LifetimeTooShort: the owner's lifetime
// ends at the move, which is shorter than what the live borrow still needs
// (spec.md §4.5 "liveness tracked down to the last use, not lexical scope
// end") — a case the block-level lexical approximation elsewhere in this
// file cannot see on its own, since it never revisits borrow state once a
// block is entered.
func (a *Analyzer) consumeIfMove(e *env, expr ast.Expr) {
	ident, ok := expr.(*ast.IdentExpr)
	if !ok {
		return
	}
	if a.isCopy(expr) {
		return
	}
	b := e.lookup(ident.Name)
	if b == nil || b.isParam && b.isRef {
		return
	}
	if b.state == StateBorrowedExclusive || b.sharedCount > 0 {
		a.sink.Errorf(reporter.CategoryOwnership, "E0706", ident.NodeSpan(),
			"cannot move %q: a borrow of it is still live past this point", ident.Name)
	}
	b.state = StateMoved
}

// checkReturnLifetime implements spec.md §4.5 "Returning a reference
// requires a traceable lifetime to a parameter": a `ref`/`mut ref` of a
// binding that is not one of the function's own parameters cannot be
// returned (E0704 DanglingReturn).
func (a *Analyzer) checkReturnLifetime(e *env, expr ast.Expr) {
	be, ok := expr.(*ast.BorrowExpr)
	if !ok {
		return
	}
	ident, ok := be.Operand.(*ast.IdentExpr)
	if !ok {
		return
	}
	b := e.lookup(ident.Name)
	if b != nil && !b.isParam {
		a.sink.Errorf(reporter.CategoryOwnership, "E0704", expr.NodeSpan(),
			"cannot return a reference to local %q: its lifetime does not outlive the call; return an owned value instead",
			ident.Name)
	}
}

// checkEscaping implements spec.md §4.5's EscapingReference failure mode: a
// borrow of a non-parameter local stored into a struct/array/tuple literal
// can outlive the local once the literal is returned or stored on the heap,
// so it is rejected the same way a direct dangling return is.
func (a *Analyzer) checkEscaping(e *env, expr ast.Expr) {
	be, ok := expr.(*ast.BorrowExpr)
	if !ok {
		return
	}
	ident, ok := be.Operand.(*ast.IdentExpr)
	if !ok {
		return
	}
	if b := e.lookup(ident.Name); b != nil && !b.isParam {
		a.sink.Errorf(reporter.CategoryOwnership, "E0705", expr.NodeSpan(),
			"reference to local %q may escape its scope through this literal", ident.Name)
	}
}

// checkClosure infers a capture mode for free variables referenced in the
// closure body (spec.md §4.5 "Closures capture by inferred mode") and
// validates moves for `transfer`-tagged closures.
func (a *Analyzer) checkClosure(e *env, cl *ast.ClosureExpr) {
	inner := newEnv(e)
	for _, p := range cl.Params {
		inner.declare(&binding{name: p.Name, copyType: true})
	}
	free := map[string]bool{}
	collectFreeIdents(cl, free)
	for name := range free {
		b := e.lookup(name)
		if b == nil {
			continue
		}
		if cl.Transfer {
			if b.state == StateMoved {
				continue
			}
			b.state = StateMoved
		}
	}
	if cl.BodyExpr != nil {
		a.readExpr(inner, cl.BodyExpr)
	}
}

// collectFreeIdents gathers every IdentExpr name mentioned anywhere in a
// closure, a coarse over-approximation of free-variable capture (params
// shadowing an outer name are filtered out by the caller's env lookup
// returning the outer binding only when no inner one shadows it first —
// acceptable here because this is advisory move-tagging for `transfer`
// closures, not a name-resolution pass).
func collectFreeIdents(cl *ast.ClosureExpr, out map[string]bool) {
	var walkExpr func(ast.Expr)
	var walkStmt func(ast.Stmt)
	var walkBlock func(*ast.Block)

	walkBlock = func(b *ast.Block) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			walkStmt(s)
		}
		walkExpr(b.Tail)
	}
	walkStmt = func(s ast.Stmt) {
		switch v := s.(type) {
		case *ast.LetStmt:
			walkExpr(v.Value)
		case *ast.ExprStmt:
			walkExpr(v.X)
		case *ast.ReturnStmt:
			walkExpr(v.Value)
		case *ast.IfStmt:
			walkExpr(v.Cond)
			walkBlock(v.Then)
			walkBlock(v.Else)
		}
	}
	walkExpr = func(e ast.Expr) {
		switch v := e.(type) {
		case nil:
		case *ast.IdentExpr:
			out[v.Name] = true
		case *ast.BinaryExpr:
			walkExpr(v.Left)
			walkExpr(v.Right)
		case *ast.CallExpr:
			walkExpr(v.Callee)
			for _, a := range v.Args {
				walkExpr(a)
			}
		case *ast.FieldExpr:
			walkExpr(v.Receiver)
		case *ast.BorrowExpr:
			walkExpr(v.Operand)
		case *ast.BlockExpr:
			walkBlock(v.Block)
		}
	}

	if cl.BodyExpr != nil {
		walkExpr(cl.BodyExpr)
	}
	walkBlock(cl.BodyBlock)
}
