package ast

import "github.com/hivellm/tmlc/source"

// Pattern is implemented by every pattern node (spec.md §4.2 "Patterns").
type Pattern interface {
	Node
	patternNode()
}

type PatternBase struct{ Base }

func (PatternBase) patternNode() {}

// WildcardPattern is `_`.
type WildcardPattern struct{ PatternBase }

// LiteralPattern matches an exact literal value.
type LiteralPattern struct {
	PatternBase
	Value Expr // one of the *LitExpr kinds
}

// BindPattern binds the scrutinee (or a sub-match) to a new name.
type BindPattern struct {
	PatternBase
	Name string
	Sub  Pattern // non-nil for `name @ subpattern`
}

// RangePattern is `lo to hi` / `lo through hi` in pattern position.
type RangePattern struct {
	PatternBase
	Lo, Hi    Expr
	Inclusive bool
}

// EnumCtorPattern matches `Variant(p1, p2)` or a unit `Variant`.
type EnumCtorPattern struct {
	PatternBase
	Path    []string
	Payload []Pattern // nil for a unit variant
}

// TuplePattern matches `(p1, p2, ...)`.
type TuplePattern struct {
	PatternBase
	Elems []Pattern
}

// StructFieldPattern is one `name: pattern` entry; Shorthand is true for
// `name` alone (binds a field to a same-named identifier).
type StructFieldPattern struct {
	Name      string
	Pattern   Pattern
	Shorthand bool
}

// StructPattern matches `TypeName { field: pat, ... }`.
type StructPattern struct {
	PatternBase
	Path   []string
	Fields []StructFieldPattern
	Rest   bool // true if the pattern ends with `, ..`
}

// ArrayPattern matches `[p1, p2, ..rest]`.
type ArrayPattern struct {
	PatternBase
	Elems   []Pattern
	Tail    string // "" if no `..rest` tail
	HasTail bool
}

// OrPattern matches `p1 | p2 | p3`; the checker verifies all alternatives
// bind the same identifiers at the same types (spec.md §4.2).
type OrPattern struct {
	PatternBase
	Alts []Pattern
}

// ErrorPattern stands in for a malformed pattern during recovery.
type ErrorPattern struct{ PatternBase }

// NewErrorPattern constructs an ErrorPattern for the parser's recovery paths.
func NewErrorPattern(id NodeID, span source.Span) ErrorPattern {
	return ErrorPattern{PatternBase{Base{ID: id, Span: span}}}
}

var (
	_ Pattern = ErrorPattern{}
	_ Pattern = (*WildcardPattern)(nil)
	_ Pattern = (*LiteralPattern)(nil)
	_ Pattern = (*BindPattern)(nil)
	_ Pattern = (*RangePattern)(nil)
	_ Pattern = (*EnumCtorPattern)(nil)
	_ Pattern = (*TuplePattern)(nil)
	_ Pattern = (*StructPattern)(nil)
	_ Pattern = (*ArrayPattern)(nil)
	_ Pattern = (*OrPattern)(nil)
)
