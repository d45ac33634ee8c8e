package ast

import "github.com/hivellm/tmlc/source"

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

type ExprBase struct{ Base }

func (ExprBase) exprNode() {}

// BinOp is a binary operator kind.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpBitOr
	OpBitXor
	OpBitAnd
	OpShl
	OpShr
	OpAnd
	OpOr
)

// UnOp is a unary (prefix) operator kind.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
	OpBitNot
)

// IdentExpr is a bare identifier reference, resolved to a Symbol by the
// resolver pass.
type IdentExpr struct {
	ExprBase
	Name string
}

// PathExpr is a qualified reference `a::b::c`.
type PathExpr struct {
	ExprBase
	Segments []string
}

// IntLitExpr, FloatLitExpr, StringLitExpr, CharLitExpr, BoolLitExpr, and
// UnitLitExpr carry literal values from the lexer into the tree (spec.md
// §4.1 "Numeric literals", "String literals").
type IntLitExpr struct {
	ExprBase
	Value  uint64
	Suffix string // "" if unsuffixed; type-checker applies default I32
}

type FloatLitExpr struct {
	ExprBase
	Value  float64
	Suffix string // "" if unsuffixed; type-checker applies default F64
}

// StringPart is either a literal chunk or an interpolated sub-expression,
// in source order (spec.md §4.1 "interpolation holes").
type StringPart struct {
	Literal string
	Interp  Expr // nil if this part is a literal chunk
}

type StringLitExpr struct {
	ExprBase
	Parts []StringPart
	Raw   bool
}

type CharLitExpr struct {
	ExprBase
	Value string // exactly one grapheme cluster
}

type BoolLitExpr struct {
	ExprBase
	Value bool
}

type UnitLitExpr struct {
	ExprBase
}

// BinaryExpr is `lhs op rhs`.
type BinaryExpr struct {
	ExprBase
	Op          BinOp
	Left, Right Expr
}

// UnaryExpr is `op operand`.
type UnaryExpr struct {
	ExprBase
	Op      UnOp
	Operand Expr
}

// BorrowExpr is `ref expr` or `mut ref expr`, the expression-position
// counterpart of RefType: it creates a shared or exclusive borrow of the
// place operand evaluates to (spec.md §4.5 "References are either shared
// (many) or exclusive (one)").
type BorrowExpr struct {
	ExprBase
	Mut     bool
	Operand Expr
}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

// MethodCallExpr is `receiver.name[TypeArgs](args...)`.
type MethodCallExpr struct {
	ExprBase
	Receiver Expr
	Name     string
	TypeArgs []TypeExpr
	Args     []Expr
}

// FieldExpr is `receiver.field`.
type FieldExpr struct {
	ExprBase
	Receiver Expr
	Field    string
}

// IndexExpr is `receiver[index]`.
type IndexExpr struct {
	ExprBase
	Receiver Expr
	Index    Expr
}

// SliceExpr is `receiver[lo:hi]`, either bound optional.
type SliceExpr struct {
	ExprBase
	Receiver Expr
	Lo, Hi   Expr // nil if omitted
}

// TypeArgsExpr applies an explicit type-argument list to a path, e.g.
// `Foo[I32]` or `x.method[I32]` (disambiguated at parse time per spec.md
// §4.2 "Disambiguation rules").
type TypeArgsExpr struct {
	ExprBase
	Base_    Expr
	TypeArgs []TypeExpr
}

// ArrayLitExpr is `[e1, e2, e3]`.
type ArrayLitExpr struct {
	ExprBase
	Elems []Expr
}

// TupleLitExpr is `(e1, e2)`; a single parenthesized expression with no
// trailing comma is NOT a tuple (it is just a grouped expression), handled
// by the parser returning the inner Expr directly in that case.
type TupleLitExpr struct {
	ExprBase
	Elems []Expr
}

// StructFieldInit is one `name: value` pair in a struct literal.
type StructFieldInit struct {
	Name  string
	Value Expr
}

// StructLitExpr is `TypeName { field: value, ... }`.
type StructLitExpr struct {
	ExprBase
	TypePath []string
	Fields   []StructFieldInit
}

// RangeExpr is `lo to hi` or `lo through hi`.
type RangeExpr struct {
	ExprBase
	Lo, Hi    Expr
	Inclusive bool
}

// ClosureExpr is `do(a, b) expr` or `do(a, b) { block }`; the ownership
// analyzer later infers its capture mode (spec.md §4.5 "Closures capture by
// inferred mode").
type ClosureExpr struct {
	ExprBase
	Params    []Param
	Transfer  bool // explicit `transfer` tag forcing move-capture
	BodyExpr  Expr  // non-nil for expression-bodied closures
	BodyBlock *Block // non-nil for block-bodied closures
}

// IfExpr is the expression form `if cond then a else b` (spec.md §4.2).
type IfExpr struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

// WhenExpr is a `when scrutinee { arm, arm, ... }` pattern match used as an
// expression.
type WhenArm struct {
	Pattern Pattern
	Guard   Expr // nil if no `if` guard
	Body    Expr
}

type WhenExpr struct {
	ExprBase
	Scrutinee Expr
	Arms      []WhenArm
}

// BlockExpr embeds a statement block used in expression position (the tail
// expression, if any, is the block's value).
type BlockExpr struct {
	ExprBase
	Block *Block
}

// PropagateExpr is the postfix `!` error/option propagation operator.
type PropagateExpr struct {
	ExprBase
	Operand Expr
}

// AwaitExpr is `expr.await` style or `await expr`; TML spells it as a
// postfix keyword per the async lowering model (spec.md §4.8 "async").
type AwaitExpr struct {
	ExprBase
	Operand Expr
}

// CoerceToDynExpr is synthesized by the type checker (not the parser) to
// mark a `T -> dyn Behavior` coercion site explicitly in the typed tree
// (spec.md §4.4 "Coercions").
type CoerceToDynExpr struct {
	ExprBase
	Operand      Expr
	BehaviorName string
}

// ErrorExpr stands in for a malformed expression subtree so the tree stays
// complete even after a parse error (spec.md §4.2 "The parser always
// produces a tree").
type ErrorExpr struct{ ExprBase }

var (
	_ Expr = (*IdentExpr)(nil)
	_ Expr = (*PathExpr)(nil)
	_ Expr = (*BorrowExpr)(nil)
	_ Expr = (*IntLitExpr)(nil)
	_ Expr = (*FloatLitExpr)(nil)
	_ Expr = (*StringLitExpr)(nil)
	_ Expr = (*CharLitExpr)(nil)
	_ Expr = (*BoolLitExpr)(nil)
	_ Expr = (*UnitLitExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*MethodCallExpr)(nil)
	_ Expr = (*FieldExpr)(nil)
	_ Expr = (*IndexExpr)(nil)
	_ Expr = (*SliceExpr)(nil)
	_ Expr = (*TypeArgsExpr)(nil)
	_ Expr = (*ArrayLitExpr)(nil)
	_ Expr = (*TupleLitExpr)(nil)
	_ Expr = (*StructLitExpr)(nil)
	_ Expr = (*RangeExpr)(nil)
	_ Expr = (*ClosureExpr)(nil)
	_ Expr = (*IfExpr)(nil)
	_ Expr = (*WhenExpr)(nil)
	_ Expr = (*BlockExpr)(nil)
	_ Expr = (*PropagateExpr)(nil)
	_ Expr = (*AwaitExpr)(nil)
	_ Expr = (*CoerceToDynExpr)(nil)
	_ Expr = ErrorExpr{}
)

// NewErrorExpr constructs an ErrorExpr for use by the parser's recovery
// paths (package ast owns the unexported exprNode marker method, so callers
// outside this package must go through this constructor).
func NewErrorExpr(id NodeID, span source.Span) ErrorExpr {
	return ErrorExpr{ExprBase{Base{ID: id, Span: span}}}
}
