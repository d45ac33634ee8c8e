package types

import (
	"sort"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
)

// scope is a singly-linked chain of let-bound names to their types, one
// frame per block (spec.md §4.3 "forward references apply only to
// module-level items" — local names are strictly lexical, unlike the
// module symbol table).
type scope struct {
	parent *scope
	vars   map[string]*Type
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*Type{}}
}

func (s *scope) bind(name string, t *Type) { s.vars[name] = t }

func (s *scope) lookup(name string) (*Type, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// funcCtx is the function currently being checked: its owning module, its
// generic parameter names (for Resolve's bare-name substitution), and its
// where-clause obligations.
type funcCtx struct {
	module   *resolver.Module
	generics []string
	where    []ast.WhereClause
	receiver string // concrete type name bound to "this"; "" if not a method
}

// Checker implements spec.md §4.4 over one resolver.Program: bidirectional
// inference, behavior-method resolution, where-clause checking, numeric
// widening, generic monomorphization, and `when`-exhaustiveness.
type Checker struct {
	sink    *reporter.Sink
	program *resolver.Program
	reg     *Registry
	uni     *Unifier
	mono    *MonoCache

	// Types is the per-node annotation table later passes (ownership, the IR
	// canonicalizer) read instead of re-deriving types themselves.
	Types map[ast.NodeID]*Type
}

// NewChecker returns a Checker over reg, a Registry already built from
// program via BuildRegistry.
func NewChecker(sink *reporter.Sink, program *resolver.Program, reg *Registry) *Checker {
	return &Checker{
		sink:    sink,
		program: program,
		reg:     reg,
		uni:     NewUnifier(),
		mono:    NewMonoCache(),
		Types:   map[ast.NodeID]*Type{},
	}
}

// Check walks every function and method body in program, in dependency
// order, reporting every §4.4 failure mode it finds.
func (c *Checker) Check() {
	for _, m := range c.program.Order {
		for _, d := range m.AST.Decls {
			switch v := d.(type) {
			case *ast.FuncDecl:
				c.checkFunc(m, v, &funcCtx{module: m, generics: genericNames(v.Generics), where: v.Where})
			case *ast.ImplDecl:
				implGenerics := genericNames(v.Generics)
				for _, fn := range v.Methods {
					ctx := &funcCtx{module: m, generics: append(append([]string{}, implGenerics...), genericNames(fn.Generics)...), where: append(v.Where, fn.Where...), receiver: v.Name}
					c.checkFunc(m, fn, ctx)
				}
			}
		}
	}
}

func (c *Checker) checkFunc(m *resolver.Module, fn *ast.FuncDecl, ctx *funcCtx) {
	if fn.Body == nil {
		return
	}
	sc := newScope(nil)
	if fn.Receiver != nil && ctx.receiver != "" {
		sc.bind(fn.Receiver.Name, &Type{Kind: KNamed, Name: ctx.receiver})
	}
	for _, p := range fn.Params {
		sc.bind(p.Name, c.reg.Resolve(p.Type, ctx.generics))
	}
	bodyType := c.synthBlock(sc, fn.Body, ctx)
	expected := c.reg.Resolve(fn.Return, ctx.generics)
	c.checkAssignable(bodyType, expected, fn.NodeSpan())
}

// checkAssignable verifies found can flow into a position expecting
// expected: exact unification, falling back to numeric widening (spec.md
// §4.4 "Coercions").
func (c *Checker) checkAssignable(found, expected *Type, span ast.Node) {
	if expected == nil || found == nil {
		return
	}
	if err := c.uni.Unify(expected, found); err != nil {
		if TryWiden(found, expected) {
			return
		}
		c.sink.Errorf(reporter.CategoryType, "E0501", span.NodeSpan(),
			"type mismatch: expected %s, found %s", c.uni.ResolveDeep(expected), c.uni.ResolveDeep(found))
	}
}

// synthBlock synthesizes the type of a block: the block's own lexical scope
// is a child of sc so `let` bindings don't leak to the caller, and its
// value is its tail expression's type (Unit if there is none).
func (c *Checker) synthBlock(sc *scope, b *ast.Block, ctx *funcCtx) *Type {
	if b == nil {
		return Unit
	}
	inner := newScope(sc)
	for _, s := range b.Stmts {
		c.checkStmt(inner, s, ctx)
	}
	if b.Tail != nil {
		return c.synthExpr(inner, b.Tail, ctx)
	}
	return Unit
}

func (c *Checker) checkStmt(sc *scope, s ast.Stmt, ctx *funcCtx) {
	switch v := s.(type) {
	case *ast.LetStmt:
		vt := c.synthExpr(sc, v.Value, ctx)
		if v.Type != nil {
			declared := c.reg.Resolve(v.Type, ctx.generics)
			c.checkAssignable(vt, declared, v)
			vt = declared
		}
		sc.bind(v.Name, vt)
	case *ast.AssignStmt:
		target := c.synthExpr(sc, v.Target, ctx)
		val := c.synthExpr(sc, v.Value, ctx)
		c.checkAssignable(val, target, v)
	case *ast.ExprStmt:
		c.synthExpr(sc, v.X, ctx)
	case *ast.ReturnStmt:
		if v.Value != nil {
			c.synthExpr(sc, v.Value, ctx)
		}
	case *ast.BreakStmt:
		if v.Value != nil {
			c.synthExpr(sc, v.Value, ctx)
		}
	case *ast.IfStmt:
		c.checkAssignable(c.synthExpr(sc, v.Cond, ctx), Bool, v.Cond)
		c.synthBlock(sc, v.Then, ctx)
		c.synthBlock(sc, v.Else, ctx)
	case *ast.WhenStmt:
		scrut := c.synthExpr(sc, v.Scrutinee, ctx)
		var pats []ast.Pattern
		for _, arm := range v.Arms {
			asc := newScope(sc)
			c.checkPattern(asc, arm.Pattern, scrut, ctx)
			if arm.Guard != nil {
				c.checkAssignable(c.synthExpr(asc, arm.Guard, ctx), Bool, arm.Guard)
			}
			c.synthBlock(asc, arm.Body, ctx)
			pats = append(pats, arm.Pattern)
		}
		c.checkExhaustive(scrut, pats, v)
	case *ast.ForStmt:
		c.synthExpr(sc, v.Iter, ctx)
		inner := newScope(sc)
		c.bindPattern(inner, v.Pattern, c.uni.Fresh())
		c.synthBlock(inner, v.Body, ctx)
	case *ast.WhileStmt:
		c.checkAssignable(c.synthExpr(sc, v.Cond, ctx), Bool, v.Cond)
		c.synthBlock(sc, v.Body, ctx)
	case *ast.LoopStmt:
		c.synthBlock(sc, v.Body, ctx)
	}
}

// synthExpr synthesizes the type of e, recording it in c.Types as it goes.
func (c *Checker) synthExpr(sc *scope, e ast.Expr, ctx *funcCtx) *Type {
	if e == nil {
		return Unit
	}
	t := c.synthExprUncached(sc, e, ctx)
	c.Types[e.NodeID()] = t
	return t
}

func (c *Checker) synthExprUncached(sc *scope, e ast.Expr, ctx *funcCtx) *Type {
	switch v := e.(type) {
	case *ast.IntLitExpr:
		if v.Suffix != "" {
			return Primitive(v.Suffix)
		}
		return I32
	case *ast.FloatLitExpr:
		if v.Suffix != "" {
			return Primitive(v.Suffix)
		}
		return F64
	case *ast.StringLitExpr:
		for _, p := range v.Parts {
			if p.Interp != nil {
				c.synthExpr(sc, p.Interp, ctx)
			}
		}
		return Str
	case *ast.CharLitExpr:
		return Char
	case *ast.BoolLitExpr:
		return Bool
	case *ast.UnitLitExpr:
		return Unit
	case *ast.IdentExpr:
		if t, ok := sc.lookup(v.Name); ok {
			return t
		}
		if sym, ok := ctx.module.Symbols.Get(v.Name); ok {
			return c.typeOfSymbol(sym, ctx)
		}
		c.sink.Errorf(reporter.CategoryType, "E0502", v.NodeSpan(), "unresolved name %q", v.Name)
		return c.uni.Fresh()
	case *ast.PathExpr:
		sym, err := resolver.Lookup(ctx.module, v.Segments)
		if err != nil {
			c.sink.Errorf(reporter.CategoryType, "E0502", v.NodeSpan(), "%s", err)
			return c.uni.Fresh()
		}
		return c.typeOfSymbol(sym, ctx)
	case *ast.BinaryExpr:
		return c.synthBinary(sc, v, ctx)
	case *ast.UnaryExpr:
		operand := c.synthExpr(sc, v.Operand, ctx)
		if v.Op == ast.OpNot {
			c.checkAssignable(operand, Bool, v)
		}
		return operand
	case *ast.CallExpr:
		return c.synthCall(sc, v, ctx)
	case *ast.MethodCallExpr:
		return c.synthMethodCall(sc, v, ctx)
	case *ast.FieldExpr:
		return c.synthField(sc, v, ctx)
	case *ast.IndexExpr:
		recv := c.synthExpr(sc, v.Receiver, ctx)
		c.synthExpr(sc, v.Index, ctx)
		if recv.Kind == KSlice || recv.Kind == KArray {
			return recv.Elem
		}
		return c.uni.Fresh()
	case *ast.SliceExpr:
		recv := c.synthExpr(sc, v.Receiver, ctx)
		if v.Lo != nil {
			c.synthExpr(sc, v.Lo, ctx)
		}
		if v.Hi != nil {
			c.synthExpr(sc, v.Hi, ctx)
		}
		if recv.Kind == KArray {
			return &Type{Kind: KSlice, Elem: recv.Elem}
		}
		return recv
	case *ast.TypeArgsExpr:
		return c.synthExpr(sc, v.Base_, ctx)
	case *ast.ArrayLitExpr:
		elem := c.uni.Fresh()
		for _, el := range v.Elems {
			c.checkAssignable(c.synthExpr(sc, el, ctx), elem, el)
		}
		return &Type{Kind: KArray, Elem: elem, Len: int64(len(v.Elems))}
	case *ast.TupleLitExpr:
		elems := make([]*Type, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = c.synthExpr(sc, el, ctx)
		}
		return &Type{Kind: KTuple, Elems: elems}
	case *ast.StructLitExpr:
		return c.synthStructLit(sc, v, ctx)
	case *ast.RangeExpr:
		c.synthExpr(sc, v.Lo, ctx)
		c.synthExpr(sc, v.Hi, ctx)
		return &Type{Kind: KNamed, Name: "Range"}
	case *ast.ClosureExpr:
		return c.synthClosure(sc, v, ctx)
	case *ast.IfExpr:
		c.checkAssignable(c.synthExpr(sc, v.Cond, ctx), Bool, v.Cond)
		thenT := c.synthExpr(sc, v.Then, ctx)
		elseT := c.synthExpr(sc, v.Else, ctx)
		c.checkAssignable(elseT, thenT, v)
		return thenT
	case *ast.WhenExpr:
		return c.synthWhen(sc, v, ctx)
	case *ast.BlockExpr:
		return c.synthBlock(sc, v.Block, ctx)
	case *ast.PropagateExpr:
		inner := c.synthExpr(sc, v.Operand, ctx)
		if inner.Kind == KNamed && len(inner.TypeArgs) > 0 {
			return inner.TypeArgs[0]
		}
		return inner
	case *ast.AwaitExpr:
		inner := c.synthExpr(sc, v.Operand, ctx)
		if inner.Kind == KNamed && inner.Name == "Poll" && len(inner.TypeArgs) > 0 {
			return inner.TypeArgs[0]
		}
		return inner
	case *ast.CoerceToDynExpr:
		c.synthExpr(sc, v.Operand, ctx)
		return &Type{Kind: KDyn, Behavior: v.BehaviorName}
	case *ast.BorrowExpr:
		inner := c.synthExpr(sc, v.Operand, ctx)
		return &Type{Kind: KRef, Elem: inner, Mut: v.Mut}
	default:
		return Unit
	}
}

func (c *Checker) synthBinary(sc *scope, v *ast.BinaryExpr, ctx *funcCtx) *Type {
	lt := c.synthExpr(sc, v.Left, ctx)
	rt := c.synthExpr(sc, v.Right, ctx)
	switch v.Op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		c.checkAssignable(rt, lt, v)
		return Bool
	case ast.OpAnd, ast.OpOr:
		c.checkAssignable(lt, Bool, v)
		c.checkAssignable(rt, Bool, v)
		return Bool
	default:
		c.checkAssignable(rt, lt, v)
		return lt
	}
}

func (c *Checker) synthCall(sc *scope, v *ast.CallExpr, ctx *funcCtx) *Type {
	var calleeSig *Type
	var calleeGenerics []string
	var calleeWhere []ast.WhereClause
	var calleeName string

	switch callee := v.Callee.(type) {
	case *ast.IdentExpr:
		calleeName = callee.Name
		if sym, ok := ctx.module.Symbols.Get(callee.Name); ok {
			if fn, ok := sym.Decl.(*ast.FuncDecl); ok {
				calleeGenerics = genericNames(fn.Generics)
				calleeWhere = fn.Where
				calleeSig = c.reg.FuncSignature(fn, calleeGenerics)
			}
		}
	case *ast.PathExpr:
		calleeName = callee.Segments[len(callee.Segments)-1]
		if sym, err := resolver.Lookup(ctx.module, callee.Segments); err == nil {
			if fn, ok := sym.Decl.(*ast.FuncDecl); ok {
				calleeGenerics = genericNames(fn.Generics)
				calleeWhere = fn.Where
				calleeSig = c.reg.FuncSignature(fn, calleeGenerics)
			}
		}
	default:
		calleeSig = c.synthExpr(sc, v.Callee, ctx)
	}

	args := make([]*Type, len(v.Args))
	for i, a := range v.Args {
		args[i] = c.synthExpr(sc, a, ctx)
	}

	if calleeSig == nil || calleeSig.Kind != KFunc {
		c.sink.Errorf(reporter.CategoryType, "E0502", v.NodeSpan(), "%q does not resolve to a callable", calleeName)
		return c.uni.Fresh()
	}

	if len(calleeGenerics) > 0 {
		bindings := c.inferGenericBindings(calleeGenerics, calleeSig.Params, args)
		for _, g := range calleeGenerics {
			if _, ok := bindings[g]; !ok {
				c.sink.Errorf(reporter.CategoryType, "E0505", v.NodeSpan(),
					"ambiguous type parameter %q: cannot infer from arguments to %q", g, calleeName)
			}
		}
		for _, wc := range calleeWhere {
			if bound, ok := bindings[wc.Param]; ok && bound.Kind == KNamed {
				if missing := c.reg.Impls.SatisfiesWhere(bound.Name, wc.Behaviors); len(missing) > 0 {
					c.sink.Errorf(reporter.CategoryType, "E0503", v.NodeSpan(),
						"%s does not satisfy %q: missing %v", bound.Name, wc.Param, missing)
				}
			}
		}
		typeArgs := make([]*Type, len(calleeGenerics))
		for i, g := range calleeGenerics {
			typeArgs[i] = bindings[g]
		}
		inst := c.mono.GetOrCreate(calleeName, typeArgs, func() *Type {
			return Substitute(calleeSig, bindings)
		})
		calleeSig = inst.Func
	}

	for i, p := range calleeSig.Params {
		if i < len(args) {
			c.checkAssignable(args[i], p, v)
		}
	}
	return calleeSig.Return
}

// inferGenericBindings does a best-effort structural match of each
// parameter's declared type against the synthesized argument type, binding
// any generic parameter name it finds at a matching position (spec.md §4.4
// "Generic functions are monomorphized on demand per call site").
func (c *Checker) inferGenericBindings(generics []string, params []*Type, args []*Type) map[string]*Type {
	isGeneric := map[string]bool{}
	for _, g := range generics {
		isGeneric[g] = true
	}
	bindings := map[string]*Type{}
	var match func(p, a *Type)
	match = func(p, a *Type) {
		if p == nil || a == nil {
			return
		}
		if p.Kind == KNamed && len(p.TypeArgs) == 0 && isGeneric[p.Name] {
			if _, ok := bindings[p.Name]; !ok {
				bindings[p.Name] = a
			}
			return
		}
		switch p.Kind {
		case KNamed:
			if a.Kind == KNamed && len(p.TypeArgs) == len(a.TypeArgs) {
				for i := range p.TypeArgs {
					match(p.TypeArgs[i], a.TypeArgs[i])
				}
			}
		case KSlice:
			if a.Kind == KSlice {
				match(p.Elem, a.Elem)
			}
		case KArray:
			if a.Kind == KArray {
				match(p.Elem, a.Elem)
			}
		case KRef:
			if a.Kind == KRef {
				match(p.Elem, a.Elem)
			} else {
				match(p.Elem, a)
			}
		case KTuple:
			if a.Kind == KTuple && len(p.Elems) == len(a.Elems) {
				for i := range p.Elems {
					match(p.Elems[i], a.Elems[i])
				}
			}
		}
	}
	for i, p := range params {
		if i < len(args) {
			match(p, args[i])
		}
	}
	return bindings
}

func (c *Checker) synthMethodCall(sc *scope, v *ast.MethodCallExpr, ctx *funcCtx) *Type {
	recv := c.synthExpr(sc, v.Receiver, ctx)
	for _, a := range v.Args {
		c.synthExpr(sc, a, ctx)
	}
	recvDeep := c.uni.Resolve(recv)
	typeName := recvDeep.Name
	if recvDeep.Kind == KRef {
		typeName = c.uni.Resolve(recvDeep.Elem).Name
	}
	if typeName == "" {
		return c.uni.Fresh()
	}
	method, candidates, err := c.reg.Impls.ResolveMethod(typeName, v.Name)
	if err != nil {
		if len(candidates) > 1 {
			sort.Strings(candidates)
			c.sink.Errorf(reporter.CategoryType, "E0504", v.NodeSpan(),
				"ambiguous call to %q on %s: implemented by %v", v.Name, typeName, candidates)
		} else {
			c.sink.Errorf(reporter.CategoryType, "E0502", v.NodeSpan(),
				"unresolved method %q on type %s", v.Name, typeName)
		}
		return c.uni.Fresh()
	}
	return method.Return
}

func (c *Checker) synthField(sc *scope, v *ast.FieldExpr, ctx *funcCtx) *Type {
	recv := c.synthExpr(sc, v.Receiver, ctx)
	recvDeep := c.uni.Resolve(recv)
	typeName := recvDeep.Name
	if recvDeep.Kind == KRef {
		typeName = c.uni.Resolve(recvDeep.Elem).Name
	}
	if sd, ok := c.reg.Structs[typeName]; ok {
		if ft, ok := sd.Fields[v.Field]; ok {
			return ft
		}
	}
	return c.uni.Fresh()
}

func (c *Checker) synthStructLit(sc *scope, v *ast.StructLitExpr, ctx *funcCtx) *Type {
	typeName := v.TypePath[len(v.TypePath)-1]
	sd, ok := c.reg.Structs[typeName]
	if !ok {
		for _, f := range v.Fields {
			c.synthExpr(sc, f.Value, ctx)
		}
		return &Type{Kind: KNamed, Name: typeName}
	}
	seen := map[string]bool{}
	for _, f := range v.Fields {
		vt := c.synthExpr(sc, f.Value, ctx)
		if ft, ok := sd.Fields[f.Name]; ok {
			c.checkAssignable(vt, ft, v)
		}
		seen[f.Name] = true
	}
	for _, name := range sd.FieldOrder {
		if !seen[name] {
			c.sink.Errorf(reporter.CategoryType, "E0501", v.NodeSpan(),
				"missing field %q in literal of %s", name, typeName)
		}
	}
	return &Type{Kind: KNamed, Name: typeName}
}

func (c *Checker) synthClosure(sc *scope, v *ast.ClosureExpr, ctx *funcCtx) *Type {
	inner := newScope(sc)
	params := make([]*Type, len(v.Params))
	for i, p := range v.Params {
		pt := c.reg.Resolve(p.Type, ctx.generics)
		if p.Type == nil {
			pt = c.uni.Fresh()
		}
		params[i] = pt
		inner.bind(p.Name, pt)
	}
	var ret *Type
	if v.BodyExpr != nil {
		ret = c.synthExpr(inner, v.BodyExpr, ctx)
	} else {
		ret = c.synthBlock(inner, v.BodyBlock, ctx)
	}
	return &Type{Kind: KFunc, Params: params, Return: ret}
}

func (c *Checker) synthWhen(sc *scope, v *ast.WhenExpr, ctx *funcCtx) *Type {
	scrut := c.synthExpr(sc, v.Scrutinee, ctx)
	var result *Type
	var pats []ast.Pattern
	for _, arm := range v.Arms {
		asc := newScope(sc)
		c.checkPattern(asc, arm.Pattern, scrut, ctx)
		if arm.Guard != nil {
			c.checkAssignable(c.synthExpr(asc, arm.Guard, ctx), Bool, arm.Guard)
		}
		bt := c.synthExpr(asc, arm.Body, ctx)
		if result == nil {
			result = bt
		} else {
			c.checkAssignable(bt, result, arm.Body)
		}
		pats = append(pats, arm.Pattern)
	}
	c.checkExhaustive(scrut, pats, v)
	if result == nil {
		return Unit
	}
	return result
}

// checkPattern binds every identifier a pattern introduces into sc, typed
// against scrutinee.
func (c *Checker) checkPattern(sc *scope, p ast.Pattern, scrutinee *Type, ctx *funcCtx) {
	c.bindPattern(sc, p, scrutinee)
}

func (c *Checker) bindPattern(sc *scope, p ast.Pattern, t *Type) {
	switch v := p.(type) {
	case *ast.BindPattern:
		sc.bind(v.Name, t)
		if v.Sub != nil {
			c.bindPattern(sc, v.Sub, t)
		}
	case *ast.TuplePattern:
		if t.Kind == KTuple && len(t.Elems) == len(v.Elems) {
			for i, sub := range v.Elems {
				c.bindPattern(sc, sub, t.Elems[i])
			}
		}
	case *ast.EnumCtorPattern:
		name := v.Path[len(v.Path)-1]
		enumName := t.Name
		if ed, ok := c.reg.Enums[enumName]; ok {
			if vd, ok := ed.ByName[name]; ok {
				for i, sub := range v.Payload {
					if i < len(vd.Payload) {
						c.bindPattern(sc, sub, vd.Payload[i])
					}
				}
			}
		}
	case *ast.StructPattern:
		typeName := v.Path[len(v.Path)-1]
		sd := c.reg.Structs[typeName]
		for _, fp := range v.Fields {
			var ft *Type = c.uni.Fresh()
			if sd != nil {
				if declared, ok := sd.Fields[fp.Name]; ok {
					ft = declared
				}
			}
			if fp.Shorthand {
				sc.bind(fp.Name, ft)
			} else {
				c.bindPattern(sc, fp.Pattern, ft)
			}
		}
	case *ast.ArrayPattern:
		elem := t.Elem
		if elem == nil {
			elem = c.uni.Fresh()
		}
		for _, sub := range v.Elems {
			c.bindPattern(sc, sub, elem)
		}
		if v.HasTail && v.Tail != "" {
			sc.bind(v.Tail, &Type{Kind: KSlice, Elem: elem})
		}
	case *ast.OrPattern:
		for _, alt := range v.Alts {
			c.bindPattern(sc, alt, t)
		}
	}
}

// checkExhaustive implements spec.md §4.4's "coverage matrix" for the
// common enum-scrutinee case: every variant name must be covered by either
// an explicit EnumCtorPattern or a catch-all (WildcardPattern/BindPattern)
// somewhere among the arms.
func (c *Checker) checkExhaustive(scrutinee *Type, pats []ast.Pattern, node ast.Node) {
	deep := c.uni.Resolve(scrutinee)
	if deep.Kind != KNamed {
		return
	}
	ed, ok := c.reg.Enums[deep.Name]
	if !ok {
		return
	}
	covered := map[string]bool{}
	catchAll := false
	var mark func(p ast.Pattern)
	mark = func(p ast.Pattern) {
		switch v := p.(type) {
		case *ast.WildcardPattern:
			catchAll = true
		case *ast.BindPattern:
			if v.Sub != nil {
				mark(v.Sub)
			} else {
				catchAll = true
			}
		case *ast.EnumCtorPattern:
			covered[v.Path[len(v.Path)-1]] = true
		case *ast.OrPattern:
			for _, alt := range v.Alts {
				mark(alt)
			}
		}
	}
	for _, p := range pats {
		mark(p)
	}
	if catchAll {
		return
	}
	var missing []string
	for _, vd := range ed.Variants {
		if !covered[vd.Name] {
			missing = append(missing, vd.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		c.sink.Errorf(reporter.CategoryType, "E0506", node.NodeSpan(),
			"non-exhaustive match on %s: missing variants %v", deep.Name, missing)
	}
}

// typeOfSymbol resolves the semantic type of a module-level symbol
// referenced by name (not called): funcs synthesize to their KFunc
// signature so a bare function reference used as a value type-checks.
func (c *Checker) typeOfSymbol(sym *resolver.Symbol, ctx *funcCtx) *Type {
	switch d := sym.Decl.(type) {
	case *ast.FuncDecl:
		return c.reg.FuncSignature(d, genericNames(d.Generics))
	case *ast.ConstDecl:
		return c.reg.Resolve(d.Type, nil)
	default:
		return c.uni.Fresh()
	}
}
