package ast

import "github.com/hivellm/tmlc/source"

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

type StmtBase struct{ Base }

func (StmtBase) stmtNode() {}

// Block is an ordered sequence of statements with an optional tail
// expression giving the block its value when used in expression position.
type Block struct {
	Base
	Stmts []Stmt
	Tail  Expr // nil if the block has no trailing expression
}

// LetStmt is `let [mut] name[: Type] = expr`.
type LetStmt struct {
	StmtBase
	Mut   bool
	Name  string
	Type  TypeExpr // nil if inferred
	Value Expr
}

// AssignStmt is `target op= value`; Op points at OpAdd for `+=`, etc., and
// is nil for plain `=`. Chained assignment is
// disallowed by the grammar (spec.md §4.2), so Target is always a single
// place expression.
type AssignStmt struct {
	StmtBase
	Target Expr
	Op     *BinOp // nil for plain `=`
	Value  Expr
}

// ExprStmt wraps an expression used for its side effects.
type ExprStmt struct {
	StmtBase
	X Expr
}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	StmtBase
	Value Expr // nil for a bare `return`
}

// BreakStmt is `break [label] [value]`.
type BreakStmt struct {
	StmtBase
	Label string
	Value Expr
}

// ContinueStmt is `continue [label]`.
type ContinueStmt struct {
	StmtBase
	Label string
}

// IfStmt is the statement/block form `if cond { ... } else { ... }`
// (distinct from IfExpr per spec.md §4.2's disambiguation rule).
type IfStmt struct {
	StmtBase
	Cond Expr
	Then *Block
	Else *Block // may itself wrap a single IfStmt for `else if`; nil if absent
}

// WhenStmt is a `when` used as a statement (its arms' bodies are blocks,
// not expressions); value-producing `when` uses WhenExpr instead.
type WhenStmt struct {
	StmtBase
	Scrutinee Expr
	Arms      []WhenStmtArm
}

type WhenStmtArm struct {
	Pattern Pattern
	Guard   Expr
	Body    *Block
}

// ForStmt is `for pat in iter { body }`, desugared by the IR canonicalizer
// into `loop`/`iter-next` (spec.md §4.7.1).
type ForStmt struct {
	StmtBase
	Label   string
	Pattern Pattern
	Iter    Expr
	Body    *Block
}

// WhileStmt is `while cond { body }`.
type WhileStmt struct {
	StmtBase
	Label string
	Cond  Expr
	Body  *Block
}

// LoopStmt is `loop { body }`, an unconditional loop exited via `break`.
type LoopStmt struct {
	StmtBase
	Label string
	Body  *Block
}

// ErrorStmt stands in for a malformed statement during recovery.
type ErrorStmt struct{ StmtBase }

// NewErrorStmt constructs an ErrorStmt for the parser's recovery paths.
func NewErrorStmt(id NodeID, span source.Span) ErrorStmt {
	return ErrorStmt{StmtBase{Base{ID: id, Span: span}}}
}

var (
	_ Stmt = ErrorStmt{}
	_ Stmt = (*LetStmt)(nil)
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*ReturnStmt)(nil)
	_ Stmt = (*BreakStmt)(nil)
	_ Stmt = (*ContinueStmt)(nil)
	_ Stmt = (*IfStmt)(nil)
	_ Stmt = (*WhenStmt)(nil)
	_ Stmt = (*ForStmt)(nil)
	_ Stmt = (*WhileStmt)(nil)
	_ Stmt = (*LoopStmt)(nil)
)
