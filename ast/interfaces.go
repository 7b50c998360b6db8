// interfaces.go contains the base node interfaces for the Python AST that
// the decompiler reconstructs. Python's AST is a closed algebraic shape:
// every node is one of a small fixed set of variants, so rather than the
// double-dispatch Accept/Visit pattern (workable for a handful of node
// kinds, unwieldy once the grammar has dozens of them), expressions and
// statements are marker interfaces and the printer is a single type switch
// — the same shape the standard library's go/ast package uses for its own
// Expr/Stmt interfaces.

package ast

// Node is embedded by every AST node.
type Node interface {
	node()
}

// Expr is implemented by every expression node. An expression always
// produces a value.
type Expr interface {
	Node
	exprNode()
	// Prec returns the node's operator precedence so the printer can
	// decide whether a child expression needs parenthesizing.
	Prec() int
}

// Stmt is implemented by every statement node. A statement does not
// produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// Precedence levels, lowest to highest binding. Mirrors CPython's operator
// precedence table closely enough to reproduce conventional
// parenthesization; pydecomp never round-trips through its own printer so
// exact equality with CPython's table is not required.
const (
	PrecLambda = iota
	PrecTernary
	PrecOr
	PrecAnd
	PrecNot
	PrecComparison
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecShift
	PrecAdd
	PrecMul
	PrecUnary
	PrecPower
	PrecAwait
	PrecAtom
)

// Arena owns every expression/statement node produced during one
// decompilation. Nodes never outlive the arena that created them; the
// arena is simply dropped once printing is done, matching the "emit and
// forget" usage pattern — there is no explicit free.
type Arena struct {
	exprs []Expr
	stmts []Stmt
}

// NewArena creates an empty arena for one decompilation.
func NewArena() *Arena {
	return &Arena{}
}

// E records an expression node's lifetime in the arena and returns it
// unchanged, for call-site convenience: `arena.E(&BinOp{...})`.
func (a *Arena) E(e Expr) Expr {
	a.exprs = append(a.exprs, e)
	return e
}

// S records a statement node's lifetime in the arena and returns it
// unchanged.
func (a *Arena) S(s Stmt) Stmt {
	a.stmts = append(a.stmts, s)
	return s
}
