package ast

import "github.com/hivellm/tmlc/source"

// TypeExpr is implemented by every parsed type-expression node (spec.md §3
// "Type term" at the syntax level; the type checker later resolves these
// into the types package's semantic Type values).
type TypeExpr interface {
	Node
	typeExprNode()
}

type TypeBase struct{ Base }

func (TypeBase) typeExprNode() {}

// PrimitiveType is one of the fixed primitive names (I8..I128, U8..U128,
// F32, F64, Bool, Char, Unit, Never, Str).
type PrimitiveType struct {
	TypeBase
	Name string
}

// NamedType is a path to a user type with an ordered type-argument list,
// e.g. `Maybe[I32]` or `pkg::Thing`.
type NamedType struct {
	TypeBase
	Path     []string
	TypeArgs []TypeExpr
}

// FuncType is `(A, B) -> R` with an optional effect row annotation.
type FuncType struct {
	TypeBase
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

// TupleType is `(A, B, C)`; zero elements is the unit type written `()`.
type TupleType struct {
	TypeBase
	Elems []TypeExpr
}

// ArrayType is `[T; N]` with a fixed, constant-expression length.
type ArrayType struct {
	TypeBase
	Elem TypeExpr
	Len  Expr
}

// SliceType is `[T]`.
type SliceType struct {
	TypeBase
	Elem TypeExpr
}

// RefType is `ref T` or `mut ref T`, with an abstract lifetime label
// (spec.md §3), inferred if not written explicitly (Lifetime == "").
type RefType struct {
	TypeBase
	Mut      bool
	Elem     TypeExpr
	Lifetime string
}

// DynType is `dyn BehaviorName[T]`, an existential over an implementor of a
// behavior (spec.md §3 "dyn-behavior existential").
type DynType struct {
	TypeBase
	BehaviorPath []string
	TypeArgs     []TypeExpr
}

// ErrorType stands in for a malformed type expression during recovery.
type ErrorType struct{ TypeBase }

// NewErrorType constructs an ErrorType for the parser's recovery paths.
func NewErrorType(id NodeID, span source.Span) ErrorType {
	return ErrorType{TypeBase{Base{ID: id, Span: span}}}
}

var (
	_ TypeExpr = ErrorType{}
	_ TypeExpr = (*PrimitiveType)(nil)
	_ TypeExpr = (*NamedType)(nil)
	_ TypeExpr = (*FuncType)(nil)
	_ TypeExpr = (*TupleType)(nil)
	_ TypeExpr = (*ArrayType)(nil)
	_ TypeExpr = (*SliceType)(nil)
	_ TypeExpr = (*RefType)(nil)
	_ TypeExpr = (*DynType)(nil)
)
