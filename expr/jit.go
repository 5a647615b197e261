package expr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/row"
)

// Thunk is a compiled expression: an opaque callable from row to cell,
// bound to the schema it was compiled against (§3, §4.9).
type Thunk func(row.Row) row.Cell

// Compile binds e to schema, fixing every NthColumn's index bounds-check
// and rejecting a literal-zero denominator up front (CodeDivByZero); a
// runtime (non-literal) zero denominator still traps to NaN rather than
// erroring, per §4.9. The result is a closure tree built once rather
// than re-walked per row, which is this package's stand-in for the
// source's native-code JIT — Go gives no portable route to emit actual
// machine code from a DSL AST, so specialization here means fixing
// column offsets and the literal-zero division check at compile time.
// Operand-kind dispatch is not specialized: binaryKernel and unaryKernel
// still switch on the operands' cell kinds for every row.
func Compile(e Expr, schema row.Schema) (Thunk, error) {
	switch n := e.(type) {
	case Literal:
		v := n.Value
		return func(row.Row) row.Cell { return v }, nil
	case NthColumn:
		if n.Index < 0 || n.Index >= schema.Len() {
			return nil, errs.Newf(errs.CodeSchema, "column index %d out of range for schema of width %d", n.Index, schema.Len())
		}
		idx := n.Index
		return func(r row.Row) row.Cell {
			if idx >= len(r.Cells) {
				return row.None()
			}
			return r.Cells[idx]
		}, nil
	case UnaryOp:
		inner, err := Compile(n.Inner, schema)
		if err != nil {
			return nil, err
		}
		op := n.Op
		return func(r row.Row) row.Cell { return unaryKernel(op, inner(r)) }, nil
	case BinaryOp:
		left, err := Compile(n.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := Compile(n.Right, schema)
		if err != nil {
			return nil, err
		}
		if n.Op == Div {
			if lit, ok := n.Right.(Literal); ok {
				if f, ok := lit.Value.Float64(); ok && f == 0 {
					return nil, errs.New(errs.CodeDivByZero, "division by a literal zero denominator")
				}
			}
		}
		op := n.Op
		return func(r row.Row) row.Cell { return binaryKernel(op, left(r), right(r)) }, nil
	case AggLeaf:
		if len(n.Args) == 0 {
			return func(row.Row) row.Cell { return row.None() }, nil
		}
		return Compile(n.Args[0], schema)
	default:
		return nil, errs.Newf(errs.CodeInternal, "unknown expression node %T", e)
	}
}

// Cache is a process-wide keyed cache of compiled thunks: hits read the
// underlying LRU (itself internally synchronized) without taking mu;
// only a miss takes mu, so concurrent hits never contend with each
// other, matching §4.9/§9's "single lock taken only on miss."
type Cache struct {
	lru *lru.Cache[string, Thunk]
	mu  sync.Mutex
}

// NewCache builds a thunk cache holding up to size compiled expressions.
func NewCache(size int) *Cache {
	c, _ := lru.New[string, Thunk](size)
	return &Cache{lru: c}
}

// GetOrCompile returns the cached thunk for (e, schema), compiling and
// inserting it on a miss.
func (c *Cache) GetOrCompile(e Expr, schema row.Schema) (Thunk, error) {
	key := cacheKey(e, schema)
	if t, ok := c.lru.Get(key); ok {
		return t, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.lru.Get(key); ok {
		return t, nil
	}
	t, err := Compile(e, schema)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, t)
	return t, nil
}

var (
	globalOnce  sync.Once
	globalCache *Cache
)

// Global returns the process-wide thunk cache, per §5's "the expression
// JIT cache is process-wide."
func Global() *Cache {
	globalOnce.Do(func() { globalCache = NewCache(4096) })
	return globalCache
}

// cacheKey serializes (e, schema) into a string suitable as a cache key:
// compiled expression equality compares (ast, schema) per §4.9, and this
// is that comparison made concrete for a hash-map key.
func cacheKey(e Expr, schema row.Schema) string {
	var b strings.Builder
	writeExpr(&b, e)
	b.WriteByte('@')
	for _, k := range schema.Kinds {
		b.WriteByte(byte(k))
	}
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Literal:
		fmt.Fprintf(b, "Lit(%d:%d)", n.Value.Kind(), n.Value.HashBits())
	case NthColumn:
		fmt.Fprintf(b, "Col(%d)", n.Index)
	case BinaryOp:
		fmt.Fprintf(b, "Bin(%d,", n.Op)
		writeExpr(b, n.Left)
		b.WriteByte(',')
		writeExpr(b, n.Right)
		b.WriteByte(')')
	case UnaryOp:
		fmt.Fprintf(b, "Un(%d,", n.Op)
		writeExpr(b, n.Inner)
		b.WriteByte(')')
	case AggLeaf:
		fmt.Fprintf(b, "Agg(%d,", n.Kind)
		for _, a := range n.Args {
			writeExpr(b, a)
			b.WriteByte(';')
		}
		keys := make([]string, 0, len(n.Params))
		for k := range n.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "%s=%g,", k, n.Params[k])
		}
		b.WriteByte(')')
	}
}
