package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/btree"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/resolver"
	"github.com/hivellm/tmlc/stableid"
	"github.com/hivellm/tmlc/types"
)

// kindRank orders declaration kinds within a module per spec.md §4.7.3:
// "const, type, behavior, extend-blocks, func".
func kindRank(d ast.Decl) int {
	switch d.(type) {
	case *ast.ConstDecl:
		return 0
	case *ast.StructDecl, *ast.EnumDecl, *ast.AliasDecl:
		return 1
	case *ast.BehaviorDecl:
		return 2
	case *ast.ImplDecl:
		return 3
	case *ast.FuncDecl:
		return 4
	default:
		return 5
	}
}

// orderKey builds the (kind, name) sort key btree.Map orders module items
// by, matching "within kind alphabetically by name".
func orderKey(d ast.Decl) string {
	return fmt.Sprintf("%d\x00%s", kindRank(d), d.DeclName())
}

// Canonicalizer implements spec.md §4.7 over a type-checked
// resolver.Program.
type Canonicalizer struct {
	reg     *types.Registry
	checker *types.Checker
	stable  *stableid.Table
}

// NewCanonicalizer returns a Canonicalizer. checker must have already run
// Check() so its Types table is populated; stable is the Session's shared
// stable-ID table so IDs stay unique across the whole compilation.
func NewCanonicalizer(reg *types.Registry, checker *types.Checker, stable *stableid.Table) *Canonicalizer {
	return &Canonicalizer{reg: reg, checker: checker, stable: stable}
}

// Canonicalize lowers prog to its canonical IR: one `(module <path> ...)`
// list per module, modules kept in prog.Order (dependency-first, itself a
// deterministic function of the source) since the spec orders *items*, not
// modules.
func (c *Canonicalizer) Canonicalize(prog *resolver.Program) *SExpr {
	var modules []*SExpr
	for _, m := range prog.Order {
		modules = append(modules, c.canonModule(m))
	}
	return L(append([]*SExpr{A("program")}, modules...)...)
}

func (c *Canonicalizer) canonModule(m *resolver.Module) *SExpr {
	var tree btree.Map[string, *SExpr]
	for _, d := range m.AST.Decls {
		tree.Set(orderKey(d), c.canonDecl(m, d))
	}

	items := []*SExpr{A("module"), A(m.Path)}
	tree.Scan(func(_ string, node *SExpr) bool {
		items = append(items, node)
		return true
	})
	return L(items...)
}

func (c *Canonicalizer) canonDecl(m *resolver.Module, d ast.Decl) *SExpr {
	id := c.assignID(m, d)
	directives := directiveNodes(d.Directives())

	switch v := d.(type) {
	case *ast.ConstDecl:
		return L(A("const"), A(v.Name), A(id), L(directives...), c.canonExpr(m, v.Value))
	case *ast.StructDecl:
		return L(A("struct"), A(v.Name), A(id), L(directives...), c.canonFields(v.Fields))
	case *ast.EnumDecl:
		return L(A("enum"), A(v.Name), A(id), L(directives...), c.canonVariants(v.Variants))
	case *ast.AliasDecl:
		return L(A("alias"), A(v.Name), A(id), L(directives...))
	case *ast.BehaviorDecl:
		return L(A("behavior"), A(v.Name), A(id), L(directives...), c.canonMethodSigs(v.Methods))
	case *ast.ImplDecl:
		behavior := v.BehaviorName
		if behavior == "" {
			behavior = "_"
		}
		var methods []*SExpr
		for _, fn := range v.Methods {
			methods = append(methods, c.canonFunc(m, fn))
		}
		return L(A("extend"), A(v.Name), A(behavior), A(id), L(directives...), L(methods...))
	case *ast.FuncDecl:
		return c.canonFuncItem(m, v, id, directives)
	default:
		return L(A("unknown"), A(id))
	}
}

func (c *Canonicalizer) assignID(m *resolver.Module, d ast.Decl) string {
	sig := c.normalizedSignature(d)
	return string(c.stable.Assign(m.Path, d.DeclName(), sig))
}

// normalizedSignature renders the part of a declaration's shape that
// identifies its "signature" independent of body/position, for stable-ID
// hashing (spec.md §3 "normalized_signature").
func (c *Canonicalizer) normalizedSignature(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.FuncDecl:
		parts := make([]string, len(v.Params))
		for i, p := range v.Params {
			parts[i] = c.reg.Resolve(p.Type, nil).String()
		}
		ret := c.reg.Resolve(v.Return, nil).String()
		return fmt.Sprintf("func(%s)->%s", strings.Join(parts, ","), ret)
	case *ast.StructDecl:
		names := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			names[i] = f.Name
		}
		sort.Strings(names)
		return "struct{" + strings.Join(names, ",") + "}"
	case *ast.EnumDecl:
		names := make([]string, len(v.Variants))
		for i, vr := range v.Variants {
			names[i] = vr.Name
		}
		return "enum{" + strings.Join(names, ",") + "}"
	default:
		return d.DeclName()
	}
}

func directiveNodes(dirs []ast.AIDirective) []*SExpr {
	out := []*SExpr{A("ai")}
	for _, d := range dirs {
		out = append(out, L(A("ai-directive"), A(d.Name), A(d.Payload)))
	}
	return out
}

func (c *Canonicalizer) canonFields(fields []ast.Field) *SExpr {
	sorted := append([]ast.Field{}, fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	nodes := []*SExpr{A("fields")}
	for _, f := range sorted {
		vis := "priv"
		if f.Public {
			vis = "pub"
		}
		nodes = append(nodes, L(A("field"), A(f.Name), A(vis), A(c.reg.Resolve(f.Type, nil).String())))
	}
	return L(nodes...)
}

func (c *Canonicalizer) canonVariants(vs []ast.Variant) *SExpr {
	// Variant order is source order and semantically significant (the future
	// LLVM tag); it is NOT sorted, unlike struct fields.
	nodes := []*SExpr{A("variants")}
	for i, v := range vs {
		payload := []*SExpr{A("payload")}
		for _, p := range v.Payload {
			payload = append(payload, A(c.reg.Resolve(p, nil).String()))
		}
		nodes = append(nodes, L(A("variant"), A(v.Name), A(fmt.Sprintf("%d", i)), L(payload...)))
	}
	return L(nodes...)
}

func (c *Canonicalizer) canonMethodSigs(sigs []ast.MethodSig) *SExpr {
	sorted := append([]ast.MethodSig{}, sigs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	nodes := []*SExpr{A("methods")}
	for _, s := range sorted {
		nodes = append(nodes, A(s.Name))
	}
	return L(nodes...)
}

func (c *Canonicalizer) canonFuncItem(m *resolver.Module, fn *ast.FuncDecl, id string, directives []*SExpr) *SExpr {
	effects := []*SExpr{A("effects")}
	for _, eff := range fn.Effects {
		effects = append(effects, A(eff))
	}
	params := []*SExpr{A("params")} // order preserved, never sorted
	for _, p := range fn.Params {
		params = append(params, L(A(p.Name), A(c.reg.Resolve(p.Type, genericNamesOf(fn)).String())))
	}
	body := A("extern")
	if fn.Body != nil {
		body = c.canonBlock(m, fn.Body)
	}
	return L(A("func"), A(fn.Name), A(id), L(directives...), L(effects...), L(params...),
		A(c.reg.Resolve(fn.Return, genericNamesOf(fn)).String()), body)
}

func (c *Canonicalizer) canonFunc(m *resolver.Module, fn *ast.FuncDecl) *SExpr {
	id := c.assignID(m, fn)
	return c.canonFuncItem(m, fn, id, directiveNodes(fn.Directives()))
}

func genericNamesOf(fn *ast.FuncDecl) []string {
	out := make([]string, len(fn.Generics))
	for i, g := range fn.Generics {
		out[i] = g.Name
	}
	return out
}

func (c *Canonicalizer) canonBlock(m *resolver.Module, b *ast.Block) *SExpr {
	if b == nil {
		return A("()")
	}
	nodes := []*SExpr{A("block")}
	for _, s := range b.Stmts {
		nodes = append(nodes, c.canonStmt(m, s))
	}
	if b.Tail != nil {
		nodes = append(nodes, L(A("tail"), c.canonExpr(m, b.Tail)))
	}
	return L(nodes...)
}

// canonStmt lowers sugar per spec.md §4.7.1: `+=` becomes
// `assign-of-add`/etc, `for` becomes `loop`/`iter-next`.
func (c *Canonicalizer) canonStmt(m *resolver.Module, s ast.Stmt) *SExpr {
	switch v := s.(type) {
	case *ast.LetStmt:
		return L(A("let"), A(boolAtom(v.Mut)), A(v.Name), c.canonExpr(m, v.Value))
	case *ast.AssignStmt:
		if v.Op == nil {
			return L(A("assign"), c.canonExpr(m, v.Target), c.canonExpr(m, v.Value))
		}
		return L(A("assign-of-"+binOpName(*v.Op)), c.canonExpr(m, v.Target), c.canonExpr(m, v.Value))
	case *ast.ExprStmt:
		return L(A("expr-stmt"), c.canonExpr(m, v.X))
	case *ast.ReturnStmt:
		if v.Value == nil {
			return L(A("return"))
		}
		return L(A("return"), c.canonExpr(m, v.Value))
	case *ast.BreakStmt:
		nodes := []*SExpr{A("break"), A(v.Label)}
		if v.Value != nil {
			nodes = append(nodes, c.canonExpr(m, v.Value))
		}
		return L(nodes...)
	case *ast.ContinueStmt:
		return L(A("continue"), A(v.Label))
	case *ast.IfStmt:
		return L(A("if"), c.canonExpr(m, v.Cond), c.canonBlock(m, v.Then), c.canonBlock(m, v.Else))
	case *ast.WhenStmt:
		nodes := []*SExpr{A("when"), c.canonExpr(m, v.Scrutinee)}
		for _, arm := range v.Arms {
			guard := A("_")
			if arm.Guard != nil {
				guard = c.canonExpr(m, arm.Guard)
			}
			nodes = append(nodes, L(A("arm"), c.canonPattern(m, arm.Pattern), guard, c.canonBlock(m, arm.Body)))
		}
		return L(nodes...)
	case *ast.ForStmt:
		// `for pat in iter { body }` desugars to `loop` + `iter-next`.
		return L(A("loop"), A(v.Label),
			L(A("iter-next"), c.canonPattern(m, v.Pattern), c.canonExpr(m, v.Iter)),
			c.canonBlock(m, v.Body))
	case *ast.WhileStmt:
		return L(A("while"), A(v.Label), c.canonExpr(m, v.Cond), c.canonBlock(m, v.Body))
	case *ast.LoopStmt:
		return L(A("loop-bare"), A(v.Label), c.canonBlock(m, v.Body))
	default:
		return A("error-stmt")
	}
}

func boolAtom(b bool) string {
	if b {
		return "mut"
	}
	return "let"
}

func binOpName(op ast.BinOp) string {
	names := map[ast.BinOp]string{
		ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul", ast.OpDiv: "div", ast.OpMod: "mod",
		ast.OpPow: "pow", ast.OpBitOr: "bitor", ast.OpBitXor: "bitxor", ast.OpBitAnd: "bitand",
		ast.OpShl: "shl", ast.OpShr: "shr",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return "op"
}

// canonExpr lowers an expression, preserving source order of operands
// (side-effect significant) while normalizing associativity: left for `+ -
// * / %`, right for `**` (spec.md §4.7.4). The underlying recursive-descent
// parser already builds left-associative chains for every operator except
// `**`, which it parses right-associatively (see parser/expr.go), so no
// additional rebalancing is needed here; this function's contract is simply
// to render operands in the order they already appear.
func (c *Canonicalizer) canonExpr(m *resolver.Module, e ast.Expr) *SExpr {
	if e == nil {
		return A("()")
	}
	raw := c.lowerExpr(m, e)
	if t, ok := c.checker.Types[e.NodeID()]; ok {
		return L(A(":"), A(t.String()), raw)
	}
	return raw
}

func (c *Canonicalizer) lowerExpr(m *resolver.Module, e ast.Expr) *SExpr {
	switch v := e.(type) {
	case *ast.IntLitExpr:
		return L(A("int"), A(fmt.Sprintf("%d", v.Value)))
	case *ast.FloatLitExpr:
		return L(A("float"), A(fmt.Sprintf("%g", v.Value)))
	case *ast.StringLitExpr:
		return c.lowerStringLit(m, v)
	case *ast.CharLitExpr:
		return L(A("char"), A(v.Value))
	case *ast.BoolLitExpr:
		return L(A("bool"), A(fmt.Sprintf("%t", v.Value)))
	case *ast.UnitLitExpr:
		return A("unit")
	case *ast.IdentExpr:
		return L(A("ident"), A(v.Name))
	case *ast.PathExpr:
		return L(A("path"), A(strings.Join(v.Segments, "::")))
	case *ast.BinaryExpr:
		return L(A(binOpSym(v.Op)), c.canonExpr(m, v.Left), c.canonExpr(m, v.Right))
	case *ast.UnaryExpr:
		return L(A(unOpSym(v.Op)), c.canonExpr(m, v.Operand))
	case *ast.BorrowExpr:
		tag := "borrow-shared"
		if v.Mut {
			tag = "borrow-exclusive"
		}
		return L(A(tag), c.canonExpr(m, v.Operand))
	case *ast.CallExpr:
		nodes := []*SExpr{A("call"), c.canonExpr(m, v.Callee)}
		for _, a := range v.Args {
			nodes = append(nodes, c.canonExpr(m, a))
		}
		return L(nodes...)
	case *ast.MethodCallExpr:
		// Method calls lower to static calls with an explicit receiver
		// (spec.md §4.7.1).
		nodes := []*SExpr{A("static-call"), A(v.Name), c.canonExpr(m, v.Receiver)}
		for _, a := range v.Args {
			nodes = append(nodes, c.canonExpr(m, a))
		}
		return L(nodes...)
	case *ast.FieldExpr:
		return L(A("field"), c.canonExpr(m, v.Receiver), A(v.Field))
	case *ast.IndexExpr:
		return L(A("index"), c.canonExpr(m, v.Receiver), c.canonExpr(m, v.Index))
	case *ast.SliceExpr:
		lo, hi := A("_"), A("_")
		if v.Lo != nil {
			lo = c.canonExpr(m, v.Lo)
		}
		if v.Hi != nil {
			hi = c.canonExpr(m, v.Hi)
		}
		return L(A("slice"), c.canonExpr(m, v.Receiver), lo, hi)
	case *ast.ArrayLitExpr:
		nodes := []*SExpr{A("array")}
		for _, el := range v.Elems {
			nodes = append(nodes, c.canonExpr(m, el))
		}
		return L(nodes...)
	case *ast.TupleLitExpr:
		nodes := []*SExpr{A("tuple")}
		for _, el := range v.Elems {
			nodes = append(nodes, c.canonExpr(m, el))
		}
		return L(nodes...)
	case *ast.StructLitExpr:
		// Struct literal field order follows the struct definition's
		// (alphabetical) order, not the literal's source order.
		byName := map[string]ast.Expr{}
		for _, f := range v.Fields {
			byName[f.Name] = f.Value
		}
		names := make([]string, 0, len(v.Fields))
		for n := range byName {
			names = append(names, n)
		}
		sort.Strings(names)
		nodes := []*SExpr{A("struct-lit"), A(strings.Join(v.TypePath, "::"))}
		for _, n := range names {
			nodes = append(nodes, L(A(n), c.canonExpr(m, byName[n])))
		}
		return L(nodes...)
	case *ast.RangeExpr:
		tag := "range-excl"
		if v.Inclusive {
			tag = "range-incl"
		}
		return L(A(tag), c.canonExpr(m, v.Lo), c.canonExpr(m, v.Hi))
	case *ast.ClosureExpr:
		params := []*SExpr{A("params")}
		for _, p := range v.Params {
			params = append(params, A(p.Name))
		}
		var body *SExpr
		if v.BodyExpr != nil {
			body = c.canonExpr(m, v.BodyExpr)
		} else {
			body = c.canonBlock(m, v.BodyBlock)
		}
		return L(A("closure"), A(fmt.Sprintf("%t", v.Transfer)), L(params...), body)
	case *ast.IfExpr:
		return L(A("if-expr"), c.canonExpr(m, v.Cond), c.canonExpr(m, v.Then), c.canonExpr(m, v.Else))
	case *ast.WhenExpr:
		nodes := []*SExpr{A("when-expr"), c.canonExpr(m, v.Scrutinee)}
		for _, arm := range v.Arms {
			guard := A("_")
			if arm.Guard != nil {
				guard = c.canonExpr(m, arm.Guard)
			}
			nodes = append(nodes, L(A("arm"), c.canonPattern(m, arm.Pattern), guard, c.canonExpr(m, arm.Body)))
		}
		return L(nodes...)
	case *ast.BlockExpr:
		return c.canonBlock(m, v.Block)
	case *ast.PropagateExpr:
		return L(A("propagate"), c.canonExpr(m, v.Operand))
	case *ast.AwaitExpr:
		return L(A("await"), c.canonExpr(m, v.Operand))
	case *ast.CoerceToDynExpr:
		return L(A("coerce-dyn"), A(v.BehaviorName), c.canonExpr(m, v.Operand))
	default:
		return A("error-expr")
	}
}

// lowerStringLit implements "string interpolation → concat of parts"
// (spec.md §4.7.1): an interpolated literal with more than one part lowers
// to `(concat part part ...)`; a plain literal stays a single string atom.
func (c *Canonicalizer) lowerStringLit(m *resolver.Module, v *ast.StringLitExpr) *SExpr {
	if len(v.Parts) <= 1 && (len(v.Parts) == 0 || v.Parts[0].Interp == nil) {
		text := ""
		if len(v.Parts) == 1 {
			text = v.Parts[0].Literal
		}
		return L(A("string"), A(text))
	}
	nodes := []*SExpr{A("concat")}
	for _, p := range v.Parts {
		if p.Interp != nil {
			nodes = append(nodes, c.canonExpr(m, p.Interp))
		} else {
			nodes = append(nodes, L(A("string"), A(p.Literal)))
		}
	}
	return L(nodes...)
}

func binOpSym(op ast.BinOp) string {
	names := map[ast.BinOp]string{
		ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul", ast.OpDiv: "div", ast.OpMod: "mod",
		ast.OpPow: "pow", ast.OpEq: "eq", ast.OpNeq: "neq", ast.OpLt: "lt", ast.OpGt: "gt",
		ast.OpLe: "le", ast.OpGe: "ge", ast.OpBitOr: "bitor", ast.OpBitXor: "bitxor",
		ast.OpBitAnd: "bitand", ast.OpShl: "shl", ast.OpShr: "shr", ast.OpAnd: "and", ast.OpOr: "or",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return "binop"
}

func unOpSym(op ast.UnOp) string {
	switch op {
	case ast.OpNeg:
		return "neg"
	case ast.OpNot:
		return "not"
	case ast.OpBitNot:
		return "bitnot"
	default:
		return "unop"
	}
}

func (c *Canonicalizer) canonPattern(m *resolver.Module, p ast.Pattern) *SExpr {
	switch v := p.(type) {
	case *ast.WildcardPattern:
		return A("_")
	case *ast.BindPattern:
		if v.Sub != nil {
			return L(A("bind"), A(v.Name), c.canonPattern(m, v.Sub))
		}
		return L(A("bind"), A(v.Name))
	case *ast.LiteralPattern:
		return L(A("lit-pat"), c.canonExpr(m, v.Value))
	case *ast.RangePattern:
		tag := "range-pat-excl"
		if v.Inclusive {
			tag = "range-pat-incl"
		}
		return L(A(tag), c.canonExpr(m, v.Lo), c.canonExpr(m, v.Hi))
	case *ast.EnumCtorPattern:
		nodes := []*SExpr{A("ctor"), A(strings.Join(v.Path, "::"))}
		for _, sub := range v.Payload {
			nodes = append(nodes, c.canonPattern(m, sub))
		}
		return L(nodes...)
	case *ast.TuplePattern:
		nodes := []*SExpr{A("tuple-pat")}
		for _, sub := range v.Elems {
			nodes = append(nodes, c.canonPattern(m, sub))
		}
		return L(nodes...)
	case *ast.StructPattern:
		sorted := append([]ast.StructFieldPattern{}, v.Fields...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		nodes := []*SExpr{A("struct-pat"), A(strings.Join(v.Path, "::"))}
		for _, f := range sorted {
			nodes = append(nodes, L(A(f.Name), c.canonPattern(m, f.Pattern)))
		}
		return L(nodes...)
	case *ast.ArrayPattern:
		nodes := []*SExpr{A("array-pat")}
		for _, sub := range v.Elems {
			nodes = append(nodes, c.canonPattern(m, sub))
		}
		if v.HasTail {
			nodes = append(nodes, L(A("tail"), A(v.Tail)))
		}
		return L(nodes...)
	case *ast.OrPattern:
		nodes := []*SExpr{A("or-pat")}
		for _, alt := range v.Alts {
			nodes = append(nodes, c.canonPattern(m, alt))
		}
		return L(nodes...)
	default:
		return A("error-pat")
	}
}
