// Package ast defines the TML abstract syntax tree (spec.md §3 "AST node").
// The tree is a single-owner sum type: every node is one of a fixed set of
// Go structs implementing a marker interface for its syntactic category
// (Decl, Stmt, Expr, Pattern, TypeExpr). Cross-references the later passes
// need (e.g. "which let introduced this identifier") are never pointers into
// this tree; they are NodeID-keyed side tables owned by the pass that needs
// them (spec.md §9 "Ownership of the AST"), so the tree itself stays acyclic
// and independently freeable.
package ast

import "github.com/hivellm/tmlc/source"

// NodeID is a locally (per-module) unique node identifier assigned during
// parsing, used as the key into every side table built by later passes.
type NodeID uint32

// Base carries the fields every node has: identity and source location.
type Base struct {
	ID   NodeID
	Span source.Span
}

func (b Base) NodeID() NodeID    { return b.ID }
func (b Base) NodeSpan() source.Span { return b.Span }

// Node is implemented by every AST node.
type Node interface {
	NodeID() NodeID
	NodeSpan() source.Span
}

// AIDirective is an "// @ai:name "payload"" comment attached to the
// following declaration (spec.md §4.1).
type AIDirective struct {
	Name    string
	Payload string
	Span    source.Span
}

// ---- Module -----------------------------------------------------------

// Module is the AST root for one source file.
type Module struct {
	Base
	Path    string // dotted module path, e.g. "app.net.http"
	Caps    []string
	Uses    []*Use
	Decls   []Decl
}

// Use is a `use path::to::Item [as Alias]` declaration.
type Use struct {
	Base
	Path  []string
	Alias string // "" if none
}

// ---- Declarations -------------------------------------------------------

// Decl is implemented by every top-level (or nested impl-block) item.
type Decl interface {
	Node
	declNode()
	DeclName() string
	Directives() []AIDirective
}

type DeclCommon struct {
	Base
	Name   string
	Public bool
	AI     []AIDirective
}

func (d DeclCommon) declNode()              {}
func (d DeclCommon) DeclName() string       { return d.Name }
func (d DeclCommon) Directives() []AIDirective { return d.AI }

// Param is one function parameter. Order is preserved (spec.md §4.7.3:
// "Function parameters ... preserved").
type Param struct {
	Base
	Name string
	Type TypeExpr
}

// GenericParam is a type parameter on a function or type definition, order
// preserved.
type GenericParam struct {
	Base
	Name   string
	Bounds []string // behavior names from a where-clause shorthand, if any
}

// WhereClause constrains a generic parameter: `where T: B1 + B2`.
type WhereClause struct {
	Base
	Param      string
	Behaviors  []string
}

// FuncDecl is `func name[T](a: A, b: B) -> R effects(...) { body }`.
type FuncDecl struct {
	DeclCommon
	Generics    []GenericParam
	Params      []Param
	Return      TypeExpr // nil for unit return
	Effects     []string // declared effect row; nil means "infer" (private fns)
	Where       []WhereClause
	Async       bool
	Body        *Block // nil for behavior method signatures
	Receiver    *Param // non-nil for inherent/behavior methods ("this")
}

// Field is a struct field: ordered, with visibility (spec.md §3 "Type
// definition").
type Field struct {
	Base
	Name   string
	Type   TypeExpr
	Public bool
}

// StructDecl is `type Name[T] = struct { fields }`.
type StructDecl struct {
	DeclCommon
	Generics []GenericParam
	Fields   []Field
}

// Variant is one enum variant with an optional positional payload tuple.
type Variant struct {
	Base
	Name    string
	Payload []TypeExpr // nil if a unit variant
}

// EnumDecl is `type Name[T] = Variant1(T) | Variant2 | ...`. Variant order
// is source order and semantically significant (spec.md §4.8, §9 Open
// Question 2): it becomes the LLVM tag assignment order.
type EnumDecl struct {
	DeclCommon
	Generics []GenericParam
	Variants []Variant
}

// AliasDecl is `type Name[T] = SomeType`.
type AliasDecl struct {
	DeclCommon
	Generics []GenericParam
	Target   TypeExpr
}

// MethodSig is one method signature inside a behavior declaration.
type MethodSig struct {
	Base
	Name       string
	Generics   []GenericParam
	Params     []Param
	Return     TypeExpr
	HasReceiver bool
}

// AssocTypeReq is a required associated type on a behavior.
type AssocTypeReq struct {
	Base
	Name string
}

// BehaviorDecl is `behavior Name { func m(this) -> T; type Assoc; }`.
type BehaviorDecl struct {
	DeclCommon
	Generics    []GenericParam
	Methods     []MethodSig
	AssocTypes  []AssocTypeReq
}

// AssocTypeDef binds an associated type inside an impl/extend block.
type AssocTypeDef struct {
	Base
	Name string
	Type TypeExpr
}

// ImplDecl is `extend TypeName [: BehaviorName] [where ...] { methods }`. An
// inherent impl has BehaviorName == "".
type ImplDecl struct {
	DeclCommon
	Generics     []GenericParam
	TypeArgs     []TypeExpr // type arguments to TypeName, if generic
	BehaviorName string
	Where        []WhereClause
	AssocTypes   []AssocTypeDef
	Methods      []*FuncDecl
}

// ConstDecl is a module-level constant.
type ConstDecl struct {
	DeclCommon
	Type  TypeExpr
	Value Expr
}

var (
	_ Decl = (*FuncDecl)(nil)
	_ Decl = (*StructDecl)(nil)
	_ Decl = (*EnumDecl)(nil)
	_ Decl = (*AliasDecl)(nil)
	_ Decl = (*BehaviorDecl)(nil)
	_ Decl = (*ImplDecl)(nil)
	_ Decl = (*ConstDecl)(nil)
)
