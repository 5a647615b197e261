// Package expr implements the DSL expression tree of spec §3/§4.9: a
// tree-walking interpreter, a JIT compiler that binds an expression to a
// schema and emits a specialized closure (a "thunk"), a process-wide
// thunk cache, and the aggregator leaves (including the quantile,
// covariance, Pearson, entropy, mode and skewness/kurtosis aggregators
// supplemented from original_source/).
package expr

import "github.com/chinifabio/renoir-go/row"

// Op is a binary operator.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
	And
	Or
)

// UnOp is a unary operator.
type UnOp int

const (
	Neg UnOp = iota
	Not
)

// AggKind names an aggregator leaf: Val, Sum, Count, Min, Max, Avg plus
// quantile approximation and the covariance/correlation family.
type AggKind int

const (
	AggVal AggKind = iota
	AggSum
	AggCount
	AggMin
	AggMax
	AggAvg
	AggQuantileApprox
	AggCovariance
	AggPearson
	AggEntropy
	AggMode
	AggSkewnessKurtosis
)

// Expr is the recursive expression tree node. Only the types defined in
// this file implement it.
type Expr interface {
	exprNode()
}

// Literal is a constant cell.
type Literal struct{ Value row.Cell }

// NthColumn reads the cell at a fixed row position.
type NthColumn struct{ Index int }

// BinaryOp combines two subexpressions.
type BinaryOp struct {
	Left, Right Expr
	Op          Op
}

// UnaryOp applies a unary operator to one subexpression.
type UnaryOp struct {
	Inner Expr
	Op    UnOp
}

// AggLeaf is an aggregator leaf: Args feeds the aggregator one cell per
// row per argument (Covariance/Pearson take two; the rest take one).
// Params carries numeric knobs (QuantileApprox's q and compression).
type AggLeaf struct {
	Kind   AggKind
	Args   []Expr
	Params map[string]float64
}

func (Literal) exprNode()   {}
func (NthColumn) exprNode() {}
func (BinaryOp) exprNode()  {}
func (UnaryOp) exprNode()   {}
func (AggLeaf) exprNode()   {}
