// Package types implements the TML type system (spec.md §4.4): type terms,
// a union-find unifier with type variables, generic instantiation, and the
// bidirectional checker that walks a resolver.Program producing a per-node
// type annotation table.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the concrete shape of a Type (spec.md §3 "Type term").
type Kind int

const (
	KPrimitive Kind = iota
	KNamed
	KFunc
	KTuple
	KArray
	KSlice
	KRef
	KVar
	KDyn
)

// Type is a semantic type term. Unlike ast.TypeExpr (syntax), a Type is
// fully resolved: named types point at a definition, not a path string.
type Type struct {
	Kind Kind

	// KPrimitive
	Prim string // "I32", "Bool", "Str", "Never", "Unit", ...

	// KNamed
	Name     string
	TypeArgs []*Type

	// KFunc
	Params  []*Type
	Return  *Type
	Effects []string

	// KTuple
	Elems []*Type

	// KArray / KSlice / KRef
	Elem     *Type
	Len      int64 // KArray only; -1 if not a compile-time constant yet
	Mut      bool  // KRef only
	Lifetime string

	// KVar
	VarID int

	// KDyn
	Behavior string
}

var (
	Unit  = &Type{Kind: KPrimitive, Prim: "Unit"}
	Never = &Type{Kind: KPrimitive, Prim: "Never"}
	Bool  = &Type{Kind: KPrimitive, Prim: "Bool"}
	Char  = &Type{Kind: KPrimitive, Prim: "Char"}
	Str   = &Type{Kind: KPrimitive, Prim: "Str"}
	I32   = &Type{Kind: KPrimitive, Prim: "I32"}
	F64   = &Type{Kind: KPrimitive, Prim: "F64"}
)

// Primitive interns one of the fixed primitive names.
func Primitive(name string) *Type { return &Type{Kind: KPrimitive, Prim: name} }

var integerWidths = map[string]int{
	"I8": 8, "I16": 16, "I32": 32, "I64": 64, "I128": 128,
	"U8": 8, "U16": 16, "U32": 32, "U64": 64, "U128": 128,
}

// IsInteger reports whether t is one of the fixed-width integer primitives.
func (t *Type) IsInteger() bool {
	return t.Kind == KPrimitive && integerWidths[t.Prim] != 0
}

// IsUnsigned reports whether t is an unsigned integer primitive.
func (t *Type) IsUnsigned() bool {
	return t.IsInteger() && strings.HasPrefix(t.Prim, "U")
}

// IsFloat reports whether t is F32 or F64.
func (t *Type) IsFloat() bool {
	return t.Kind == KPrimitive && (t.Prim == "F32" || t.Prim == "F64")
}

// IsCopy reports whether a value of type t is Copy rather than Affine
// (spec.md §4.5 "Model"): primitive scalars, references, and tuples of Copy
// elements.
func (t *Type) IsCopy() bool {
	switch t.Kind {
	case KPrimitive:
		return t.Prim != "Str"
	case KRef:
		return true
	case KTuple:
		for _, e := range t.Elems {
			if !e.IsCopy() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders t for diagnostics, deterministically.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KPrimitive:
		return t.Prim
	case KNamed:
		if len(t.TypeArgs) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s[%s]", t.Name, strings.Join(parts, ", "))
	case KFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Return)
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	case KArray:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	case KSlice:
		return fmt.Sprintf("[%s]", t.Elem)
	case KRef:
		if t.Mut {
			return fmt.Sprintf("mut ref %s", t.Elem)
		}
		return fmt.Sprintf("ref %s", t.Elem)
	case KVar:
		return fmt.Sprintf("?%d", t.VarID)
	case KDyn:
		return fmt.Sprintf("dyn %s", t.Behavior)
	default:
		return "<?>"
	}
}

// Equal reports structural equality after following unifier substitutions
// is the caller's responsibility (Unifier.Resolve); Equal itself does a
// shallow-resolved structural comparison.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KPrimitive:
		return a.Prim == b.Prim
	case KNamed:
		if a.Name != b.Name || len(a.TypeArgs) != len(b.TypeArgs) {
			return false
		}
		for i := range a.TypeArgs {
			if !Equal(a.TypeArgs[i], b.TypeArgs[i]) {
				return false
			}
		}
		return true
	case KFunc:
		if len(a.Params) != len(b.Params) || !Equal(a.Return, b.Return) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case KTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KArray:
		return a.Len == b.Len && Equal(a.Elem, b.Elem)
	case KSlice:
		return Equal(a.Elem, b.Elem)
	case KRef:
		return a.Mut == b.Mut && Equal(a.Elem, b.Elem)
	case KVar:
		return a.VarID == b.VarID
	case KDyn:
		return a.Behavior == b.Behavior
	default:
		return false
	}
}

// NumericWidth returns the bit width of an integer or float primitive, or 0
// if t is not numeric.
func NumericWidth(t *Type) int {
	if t == nil || t.Kind != KPrimitive {
		return 0
	}
	if w, ok := integerWidths[t.Prim]; ok {
		return w
	}
	switch t.Prim {
	case "F32":
		return 32
	case "F64":
		return 64
	}
	return 0
}
