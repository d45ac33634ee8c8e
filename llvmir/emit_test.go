package llvmir_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/ir"
	"github.com/hivellm/tmlc/llvmir"
	"github.com/hivellm/tmlc/reporter"
)

func declareFunc(id string) *ir.SExpr {
	return ir.L(
		ir.A("func"), ir.A("identity"), ir.A(id),
		ir.L(ir.A("ai")),
		ir.L(ir.A("effects")),
		ir.L(ir.A("params"), ir.L(ir.A("x"), ir.A("I32"))),
		ir.A("I32"),
		ir.A("extern"),
	)
}

func wrapProgram(items ...*ir.SExpr) *ir.SExpr {
	module := ir.L(append([]*ir.SExpr{ir.A("module"), ir.A("demo")}, items...)...)
	return ir.L(ir.A("program"), module)
}

func TestEmitProgramDeclaresExternFunc(t *testing.T) {
	t.Parallel()

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	out := e.EmitProgram(wrapProgram(declareFunc("@aabbccdd")), "x86_64-unknown-tml")

	assert.Contains(t, out, `target triple = "x86_64-unknown-tml"`)
	assert.Contains(t, out, "declare i32 @identity(i32 %x)")
	assert.False(t, sink.HasErrors())
}

func TestEmitProgramReportsUnassignedStableID(t *testing.T) {
	t.Parallel()

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	e.EmitProgram(wrapProgram(declareFunc("<unassigned>")), "x86_64-unknown-tml")

	require.True(t, sink.HasErrors())
	var found bool
	for _, d := range sink.Diagnostics() {
		if d.Code == "E0802" {
			found = true
		}
	}
	assert.True(t, found, "emitting a func with an unassigned stable id must report E0802")
}

func TestEmitStructLowersFieldsInOrder(t *testing.T) {
	t.Parallel()

	structItem := ir.L(
		ir.A("struct"), ir.A("Point"), ir.A("@11223344"),
		ir.L(ir.A("ai")),
		ir.L(ir.A("fields"),
			ir.L(ir.A("field"), ir.A("x"), ir.A("pub"), ir.A("I32")),
			ir.L(ir.A("field"), ir.A("y"), ir.A("pub"), ir.A("I32")),
		),
	)

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	out := e.EmitProgram(wrapProgram(structItem), "x86_64-unknown-tml")

	assert.Contains(t, out, "%struct.Point = type { i32, i32 }")
	assert.False(t, sink.HasErrors())
}

func TestEmitProgramFailsOnEmptyTree(t *testing.T) {
	t.Parallel()

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	e.EmitProgram(ir.L(), "x86_64-unknown-tml")

	require.True(t, sink.HasErrors())
}

func TestEmitFuncWithExplicitReturnEmitsSingleTerminator(t *testing.T) {
	t.Parallel()

	body := ir.L(
		ir.A("block"),
		ir.L(ir.A("return"),
			ir.L(ir.A("add"),
				ir.L(ir.A("ident"), ir.A("a")),
				ir.L(ir.A("ident"), ir.A("b")),
			),
		),
	)
	fn := ir.L(
		ir.A("func"), ir.A("add"), ir.A("@aabbccdd"),
		ir.L(ir.A("ai")),
		ir.L(ir.A("effects")),
		ir.L(ir.A("params"), ir.L(ir.A("a"), ir.A("I64")), ir.L(ir.A("b"), ir.A("I64"))),
		ir.A("I64"),
		body,
	)

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	out := e.EmitProgram(wrapProgram(fn), "x86_64-unknown-tml")
	require.False(t, sink.HasErrors())

	start := strings.Index(out, "define i64 @add")
	require.True(t, start >= 0, "expected a define for add, got:\n%s", out)
	end := strings.Index(out[start:], "}\n")
	require.True(t, end >= 0)
	fnText := out[start : start+end]

	assert.Equal(t, 1, strings.Count(fnText, "\n  ret "),
		"an explicit return must leave exactly one ret terminator in the entry block:\n%s", fnText)
	assert.Contains(t, fnText, "ret i64 %t1")
}

func TestEmitFuncWithTailExpressionReturnsItsValue(t *testing.T) {
	t.Parallel()

	body := ir.L(
		ir.A("block"),
		ir.L(ir.A("tail"),
			ir.L(ir.A("add"),
				ir.L(ir.A("ident"), ir.A("a")),
				ir.L(ir.A("ident"), ir.A("b")),
			),
		),
	)
	fn := ir.L(
		ir.A("func"), ir.A("add"), ir.A("@aabbccdd"),
		ir.L(ir.A("ai")),
		ir.L(ir.A("effects")),
		ir.L(ir.A("params"), ir.L(ir.A("a"), ir.A("I64")), ir.L(ir.A("b"), ir.A("I64"))),
		ir.A("I64"),
		body,
	)

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	out := e.EmitProgram(wrapProgram(fn), "x86_64-unknown-tml")
	require.False(t, sink.HasErrors())

	start := strings.Index(out, "define i64 @add")
	require.True(t, start >= 0)
	end := strings.Index(out[start:], "}\n")
	require.True(t, end >= 0)
	fnText := out[start : start+end]

	assert.Equal(t, 1, strings.Count(fnText, "\n  ret "), "a tail expression must produce exactly one ret:\n%s", fnText)
	assert.Contains(t, fnText, "ret i64 %t1", "a tail expression's own value, not zeroinitializer, must be returned")
	assert.NotContains(t, fnText, "zeroinitializer")
}

func optionEnum() *ir.SExpr {
	return ir.L(
		ir.A("enum"), ir.A("Option"), ir.A("@11112222"),
		ir.L(ir.A("ai")),
		ir.L(ir.A("variants"),
			ir.L(ir.A("variant"), ir.A("Nothing"), ir.A("0"), ir.L(ir.A("payload"))),
			ir.L(ir.A("variant"), ir.A("Just"), ir.A("1"), ir.L(ir.A("payload"), ir.A("I64"))),
		),
	)
}

func TestEmitWhenOnEnumExtractsPayloadBinding(t *testing.T) {
	t.Parallel()

	whenStmt := ir.L(
		ir.A("when"),
		ir.L(ir.A(":"), ir.A("Option"), ir.L(ir.A("ident"), ir.A("m"))),
		ir.L(ir.A("arm"),
			ir.L(ir.A("ctor"), ir.A("Just"), ir.L(ir.A("bind"), ir.A("x"))),
			ir.A("_"),
			ir.L(ir.A("block"), ir.L(ir.A("return"), ir.L(ir.A("ident"), ir.A("x")))),
		),
		ir.L(ir.A("arm"),
			ir.L(ir.A("ctor"), ir.A("Nothing")),
			ir.A("_"),
			ir.L(ir.A("block"), ir.L(ir.A("return"), ir.L(ir.A("int"), ir.A("0")))),
		),
	)
	fn := ir.L(
		ir.A("func"), ir.A("unwrap_or_zero"), ir.A("@33334444"),
		ir.L(ir.A("ai")),
		ir.L(ir.A("effects")),
		ir.L(ir.A("params"), ir.L(ir.A("m"), ir.A("Option"))),
		ir.A("I64"),
		ir.L(ir.A("block"), whenStmt),
	)

	sink := reporter.NewSink()
	e := llvmir.NewEmitter(sink)
	out := e.EmitProgram(wrapProgram(optionEnum(), fn), "x86_64-unknown-tml")
	require.False(t, sink.HasErrors())

	assert.Contains(t, out, "%struct.Option = type { i32, [8 x i8] }")
	assert.Contains(t, out, "extractvalue { i32, [8 x i8] } %m, 0", "the scrutinee tag must come out of the real tagged-union layout, not a hardcoded aggregate type")
	assert.Contains(t, out, "switch i32 %t1, label %")
	assert.Contains(t, out, "extractvalue { i32, [8 x i8] } %m, 1", "the Just arm must extract the payload bytes before binding x")
	assert.Contains(t, out, "%x = load i64,", "the ctor pattern's bound name must be materialized by an extract-then-store sequence")
	assert.Contains(t, out, "ret i64 %x", "the Just arm body must be able to return its bound payload")
	assert.Contains(t, out, "ret i64 0", "the Nothing arm must still return its own literal")
}
