package effect

import (
	"strings"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
)

// builtinEffects maps a runtime-primitive call path (as it appears in
// source, e.g. "File::read") to the effect leaf it performs (spec.md §4.6:
// "primitive effectful operations"). This is the core's fixed knowledge of
// the runtime shim's effect surface; user code cannot add to it.
var builtinEffects = map[string]string{
	"File::read":     "io.file.read",
	"File::write":    "io.file.write",
	"File::open":     "io.file",
	"Net::connect":   "io.network",
	"Net::listen":    "io.network",
	"Process::spawn": "io.process",
	"Time::now":      "io.time",
	"Ffi::call":      "system.ffi",
	"Alloc::raw":     "system.alloc",
	"Unsafe::cast":   "system.unsafe",
	"Random::bytes":  "crypto.random",
	"Hash::sha256":   "crypto.hash",
	"Encrypt::aes":   "crypto.encrypt",
}

// funcEntry pairs a function declaration with the module that owns it, so
// callee resolution can cross module boundaries via `use` edges the same
// way the name resolver does (spec.md §4.3).
type funcEntry struct {
	fn *ast.FuncDecl
	m  *resolver.Module
}

// Checker runs spec.md §4.6 over one resolver.Program: infers effect rows
// for functions that omit a declared row, verifies inferred ⊑ declared
// everywhere, and verifies every module's effective caps (after the
// SPEC_FULL.md §2.3 policy ceiling) cover its functions' effects.
type Checker struct {
	sink    *reporter.Sink
	policy  *Policy
	program *resolver.Program

	owner    map[*ast.FuncDecl]*resolver.Module
	inferred map[*ast.FuncDecl]Row
	visiting map[*ast.FuncDecl]bool
}

// NewChecker returns a Checker. policy may be nil.
func NewChecker(sink *reporter.Sink, policy *Policy, program *resolver.Program) *Checker {
	c := &Checker{
		sink: sink, policy: policy, program: program,
		owner:    map[*ast.FuncDecl]*resolver.Module{},
		inferred: map[*ast.FuncDecl]Row{},
		visiting: map[*ast.FuncDecl]bool{},
	}
	for _, m := range program.Order {
		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.FuncDecl:
				c.owner[v] = m
			case *ast.ImplDecl:
				for _, fn := range v.Methods {
					c.owner[fn] = m
				}
			}
		}
	}
	return c
}

// Check runs the full §4.6 algorithm over every module in dependency order
// and reports every violation it finds; it does not stop at the first
// error, matching spec.md §7 ("the pipeline runs every pass that can
// produce independent diagnostics").
func (c *Checker) Check() {
	for _, m := range c.program.Order {
		declaredCaps := NewRow(m.Caps...)
		effectiveCaps := c.policy.Effective(declaredCaps)

		for _, u := range m.Uses {
			if u.Target == nil {
				continue
			}
			childCaps := NewRow(u.Target.Caps...)
			if !effectiveCaps.Covers(childCaps) {
				c.sink.Errorf(reporter.CategoryEffect, "E0602", u.Span,
					"child module %q caps %v are not a subset of importing module %q caps %v",
					u.Target.Path, childCaps.Names(), m.Path, effectiveCaps.Names())
			}
		}

		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.FuncDecl:
				c.checkFunc(m, v, effectiveCaps)
			case *ast.ImplDecl:
				for _, fn := range v.Methods {
					c.checkFunc(m, fn, effectiveCaps)
				}
			}
		}
	}
}

func (c *Checker) checkFunc(m *resolver.Module, fn *ast.FuncDecl, moduleCaps Row) {
	if fn.Body == nil {
		return
	}
	inferred := c.inferFunc(m, fn)
	var declared Row
	if fn.Effects == nil {
		declared = inferred // private/omitted: declared = inferred (spec.md §4.6)
	} else {
		declared = NewRow(fn.Effects...)
		if !declared.Covers(inferred) {
			c.sink.Errorf(reporter.CategoryEffect, "E0603", fn.NodeSpan(),
				"function %q declares effects %v but its body requires %v",
				fn.Name, declared.Names(), declared.Missing(inferred))
		}
	}
	if missing := moduleCaps.Missing(declared); len(missing) > 0 {
		c.sink.Errorf(reporter.CategoryEffect, "E0604", fn.NodeSpan(),
			"function %q requires effects %v outside module %q's capability envelope %v",
			fn.Name, missing, m.Path, moduleCaps.Names())
	}
}

// inferFunc computes the inferred effect row for fn (owned by module m),
// memoizing results and guarding against infinite recursion on a call cycle
// by treating a function currently being inferred as contributing no
// additional effects yet (a later fixpoint pass is unnecessary for the
// common case because cyclic calls within one effect-inference run simply
// see the partial row already accumulated by the in-progress call).
func (c *Checker) inferFunc(m *resolver.Module, fn *ast.FuncDecl) Row {
	if row, ok := c.inferred[fn]; ok {
		return row
	}
	if c.visiting[fn] {
		return Row{}
	}
	c.visiting[fn] = true
	defer delete(c.visiting, fn)

	row := Row{}
	if fn.Body != nil {
		c.walkBlock(m, fn.Body, row)
	}
	c.inferred[fn] = row
	return row
}

func (c *Checker) walkBlock(m *resolver.Module, b *ast.Block, row Row) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		c.walkStmt(m, s, row)
	}
	if b.Tail != nil {
		c.walkExpr(m, b.Tail, row)
	}
}

func (c *Checker) walkStmt(m *resolver.Module, s ast.Stmt, row Row) {
	switch v := s.(type) {
	case *ast.LetStmt:
		c.walkExpr(m, v.Value, row)
	case *ast.AssignStmt:
		c.walkExpr(m, v.Target, row)
		c.walkExpr(m, v.Value, row)
	case *ast.ExprStmt:
		c.walkExpr(m, v.X, row)
	case *ast.ReturnStmt:
		c.walkExpr(m, v.Value, row)
	case *ast.BreakStmt:
		c.walkExpr(m, v.Value, row)
	case *ast.IfStmt:
		c.walkExpr(m, v.Cond, row)
		c.walkBlock(m, v.Then, row)
		c.walkBlock(m, v.Else, row)
	case *ast.WhenStmt:
		c.walkExpr(m, v.Scrutinee, row)
		for _, arm := range v.Arms {
			c.walkExpr(m, arm.Guard, row)
			c.walkBlock(m, arm.Body, row)
		}
	case *ast.ForStmt:
		c.walkExpr(m, v.Iter, row)
		c.walkBlock(m, v.Body, row)
	case *ast.WhileStmt:
		c.walkExpr(m, v.Cond, row)
		c.walkBlock(m, v.Body, row)
	case *ast.LoopStmt:
		c.walkBlock(m, v.Body, row)
	}
}

func (c *Checker) walkExpr(m *resolver.Module, e ast.Expr, row Row) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.CallExpr:
		c.walkExpr(m, v.Callee, row)
		for _, a := range v.Args {
			c.walkExpr(m, a, row)
		}
		name := calleeName(v.Callee)
		if leaf, ok := builtinEffects[name]; ok {
			row.Add(leaf)
		} else if entry := c.resolveCallee(m, v.Callee); entry != nil {
			c.mergeCallee(entry, row)
		}
	case *ast.MethodCallExpr:
		c.walkExpr(m, v.Receiver, row)
		for _, a := range v.Args {
			c.walkExpr(m, a, row)
		}
	case *ast.BinaryExpr:
		c.walkExpr(m, v.Left, row)
		c.walkExpr(m, v.Right, row)
	case *ast.UnaryExpr:
		c.walkExpr(m, v.Operand, row)
	case *ast.FieldExpr:
		c.walkExpr(m, v.Receiver, row)
	case *ast.IndexExpr:
		c.walkExpr(m, v.Receiver, row)
		c.walkExpr(m, v.Index, row)
	case *ast.SliceExpr:
		c.walkExpr(m, v.Receiver, row)
		c.walkExpr(m, v.Lo, row)
		c.walkExpr(m, v.Hi, row)
	case *ast.ArrayLitExpr:
		for _, el := range v.Elems {
			c.walkExpr(m, el, row)
		}
	case *ast.TupleLitExpr:
		for _, el := range v.Elems {
			c.walkExpr(m, el, row)
		}
	case *ast.StructLitExpr:
		for _, f := range v.Fields {
			c.walkExpr(m, f.Value, row)
		}
	case *ast.RangeExpr:
		c.walkExpr(m, v.Lo, row)
		c.walkExpr(m, v.Hi, row)
	case *ast.IfExpr:
		c.walkExpr(m, v.Cond, row)
		c.walkExpr(m, v.Then, row)
		c.walkExpr(m, v.Else, row)
	case *ast.WhenExpr:
		c.walkExpr(m, v.Scrutinee, row)
		for _, arm := range v.Arms {
			c.walkExpr(m, arm.Guard, row)
			c.walkExpr(m, arm.Body, row)
		}
	case *ast.BlockExpr:
		c.walkBlock(m, v.Block, row)
	case *ast.PropagateExpr:
		c.walkExpr(m, v.Operand, row)
	case *ast.AwaitExpr:
		c.walkExpr(m, v.Operand, row)
	case *ast.ClosureExpr:
		c.walkExpr(m, v.BodyExpr, row)
		c.walkBlock(m, v.BodyBlock, row)
	case *ast.CoerceToDynExpr:
		c.walkExpr(m, v.Operand, row)
	case *ast.BorrowExpr:
		c.walkExpr(m, v.Operand, row)
	}
}

// resolveCallee looks up a call's target function declaration: a bare
// identifier resolves against the calling module's own symbol table (no
// `use` needed for same-module calls); a qualified path resolves through
// the calling module's `use` edges, mirroring resolver.Lookup (spec.md
// §4.3).
func (c *Checker) resolveCallee(m *resolver.Module, callee ast.Expr) *funcEntry {
	switch v := callee.(type) {
	case *ast.IdentExpr:
		sym, ok := m.Symbols.Get(v.Name)
		if !ok {
			return nil
		}
		if fn, ok := sym.Decl.(*ast.FuncDecl); ok {
			return &funcEntry{fn: fn, m: m}
		}
	case *ast.PathExpr:
		sym, err := resolver.Lookup(m, v.Segments)
		if err != nil {
			return nil
		}
		if fn, ok := sym.Decl.(*ast.FuncDecl); ok {
			return &funcEntry{fn: fn, m: sym.Module}
		}
	}
	return nil
}

// mergeCallee folds a resolved callee's own inferred-or-declared row into
// the caller's row (spec.md §4.6: "the union of effects of all calls").
func (c *Checker) mergeCallee(entry *funcEntry, row Row) {
	var callee Row
	if entry.fn.Effects != nil {
		callee = NewRow(entry.fn.Effects...)
	} else {
		callee = c.inferFunc(entry.m, entry.fn)
	}
	for leaf := range callee {
		row.Add(leaf)
	}
}

// calleeName renders a callee expression back to the double-colon name used
// as a key in builtinEffects for the runtime-shim call surface.
func calleeName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.IdentExpr:
		return v.Name
	case *ast.PathExpr:
		return strings.Join(v.Segments, "::")
	default:
		return ""
	}
}
