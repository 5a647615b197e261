package plan

import (
	"sort"

	"github.com/chinifabio/renoir-go/expr"
)

// Optimize runs the four rewrite rules of §4.8 to a fixed point
// (predicate pushdown, projection pushdown, the Select(GroupBy) stream
// rewrite), then compiles every surviving expression against its node's
// input schema. The rules are independent rewrites over the same tree
// shape, so interleaving them per iteration lets, e.g., a predicate
// pushed below a Select in one pass enable a projection pushdown the
// next pass would otherwise have missed.
func Optimize(root Node) (Node, error) {
	cur := root
	for i := 0; i < 16; i++ {
		var a, b, c bool
		cur, a = pushdownPredicatesOnce(cur)
		cur, b = pushdownProjectionsOnce(cur)
		cur, c = collapseSelectGroupByOnce(cur)
		if !a && !b && !c {
			break
		}
	}
	if err := compileExpressions(cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// mapChildren applies f to every child of n and rebuilds n around the
// results, reporting whether any child actually changed. Leaf nodes
// (TableScan, UpStream, ParallelIterator) and unrecognized node types
// are returned unchanged.
func mapChildren(n Node, f func(Node) (Node, bool)) (Node, bool) {
	switch t := n.(type) {
	case *Filter:
		c, ch := f(t.Input)
		return &Filter{Input: c, Predicate: t.Predicate}, ch
	case *Select:
		c, ch := f(t.Input)
		return &Select{Input: c, Exprs: t.Exprs}, ch
	case *Shuffle:
		c, ch := f(t.Input)
		return &Shuffle{Input: c, Key: t.Key}, ch
	case *GroupBy:
		c, ch := f(t.Input)
		return &GroupBy{Input: c, Keys: t.Keys}, ch
	case *GroupBySelect:
		c, ch := f(t.Input)
		return &GroupBySelect{Input: c, Keys: t.Keys, Aggs: t.Aggs}, ch
	case *DropKey:
		c, ch := f(t.Input)
		return &DropKey{Input: c}, ch
	case *DropColumns:
		c, ch := f(t.Input)
		return &DropColumns{Input: c, Indices: t.Indices}, ch
	case *CollectVec:
		c, ch := f(t.Input)
		return &CollectVec{Input: c}, ch
	case *Join:
		l, lc := f(t.Left)
		r, rc := f(t.Right)
		return &Join{Left: l, Right: r, LeftOn: t.LeftOn, RightOn: t.RightOn, Type: t.Type}, lc || rc
	default:
		return n, false
	}
}

// ---- Rule 1: predicate pushdown ----

// pushdownPredicatesOnce moves a Filter one step closer to the data it
// reads: merged into a TableScan's own Predicate when it sits directly
// above one, or swapped below a purely-renaming Select (every Select
// expression a bare NthColumn) by rewriting the predicate's column
// references through the rename.
func pushdownPredicatesOnce(n Node) (Node, bool) {
	f, ok := n.(*Filter)
	if !ok {
		return mapChildren(n, pushdownPredicatesOnce)
	}
	child, changed := pushdownPredicatesOnce(f.Input)
	switch c := child.(type) {
	case *TableScan:
		return &TableScan{
			Path:        c.Path,
			Predicate:   mergePredicate(c.Predicate, f.Predicate),
			Projections: c.Projections,
			Schema:      c.Schema,
		}, true
	case *Select:
		if remap, ok := pureRenameMap(c); ok {
			if rewritten, ok2 := remapColumns(f.Predicate, remap); ok2 {
				return &Select{
					Input: &Filter{Input: c.Input, Predicate: rewritten},
					Exprs: c.Exprs,
				}, true
			}
		}
	}
	return &Filter{Input: child, Predicate: f.Predicate}, changed
}

func mergePredicate(existing, add expr.Expr) expr.Expr {
	if existing == nil {
		return add
	}
	return expr.BinaryOp{Left: existing, Right: add, Op: expr.And}
}

// pureRenameMap reports whether every expression of sel is a bare
// NthColumn, returning the map from sel's output position to the
// column index it reads in sel.Input's schema.
func pureRenameMap(sel *Select) (map[int]int, bool) {
	remap := make(map[int]int, len(sel.Exprs))
	for i, e := range sel.Exprs {
		nc, ok := e.(expr.NthColumn)
		if !ok {
			return nil, false
		}
		remap[i] = nc.Index
	}
	return remap, true
}

// remapColumns rewrites every NthColumn in e through remap, failing if e
// references a column remap does not cover (the predicate is not
// expressible purely in terms of the renamed output, so it cannot be
// pushed through).
func remapColumns(e expr.Expr, remap map[int]int) (expr.Expr, bool) {
	switch n := e.(type) {
	case expr.Literal:
		return n, true
	case expr.NthColumn:
		j, ok := remap[n.Index]
		if !ok {
			return nil, false
		}
		return expr.NthColumn{Index: j}, true
	case expr.UnaryOp:
		inner, ok := remapColumns(n.Inner, remap)
		if !ok {
			return nil, false
		}
		return expr.UnaryOp{Inner: inner, Op: n.Op}, true
	case expr.BinaryOp:
		l, ok := remapColumns(n.Left, remap)
		if !ok {
			return nil, false
		}
		r, ok := remapColumns(n.Right, remap)
		if !ok {
			return nil, false
		}
		return expr.BinaryOp{Left: l, Right: r, Op: n.Op}, true
	case expr.AggLeaf:
		args := make([]expr.Expr, len(n.Args))
		for i, a := range n.Args {
			ra, ok := remapColumns(a, remap)
			if !ok {
				return nil, false
			}
			args[i] = ra
		}
		return expr.AggLeaf{Kind: n.Kind, Args: args, Params: n.Params}, true
	default:
		return nil, false
	}
}

// ---- Rule 2: projection pushdown ----

// pushdownProjectionsOnce narrows an unprojected TableScan to exactly
// the columns a Select directly (through zero or more Filter/Shuffle
// nodes) above it reads, rewriting every NthColumn between the Select
// and the scan to its new position. It deliberately does not reach
// through GroupBy, GroupBySelect, Join or DropColumns: those nodes carry
// their own column-index fields (Keys, LeftOn/RightOn, Indices) relative
// to their input's schema, and narrowing the scan beneath them without
// also remapping those fields would silently corrupt the indices: the
// rule leaves such subtrees for a future extension to widen rather than
// rewrite them incorrectly now.
func pushdownProjectionsOnce(n Node) (Node, bool) {
	sel, ok := n.(*Select)
	if !ok {
		return mapChildren(n, pushdownProjectionsOnce)
	}
	if chain, scan, ok := findScanChainBelowSelect(sel.Input); ok && scan.Projections == nil {
		refs := collectColumnRefs(append(append([]Node{}, chain...), sel))
		remap := make(map[int]int, len(refs))
		for i, idx := range refs {
			remap[idx] = i
		}
		newScan := &TableScan{
			Path:        scan.Path,
			Predicate:   scan.Predicate,
			Projections: append([]int{}, refs...),
			Schema:      scan.Schema,
		}
		newInput := attachChain(rewriteChainRefs(chain, remap), newScan)
		newSelect := &Select{Input: newInput, Exprs: rewriteExprList(sel.Exprs, remap)}
		return newSelect, true
	}
	newInput, changed := pushdownProjectionsOnce(sel.Input)
	return &Select{Input: newInput, Exprs: sel.Exprs}, changed
}

// findScanChainBelowSelect walks down through Filter/Shuffle nodes
// looking for a TableScan; it fails (ok=false) the moment it meets any
// other node shape, since only Filter/Shuffle preserve column identity
// unconditionally.
func findScanChainBelowSelect(start Node) (chain []Node, scan *TableScan, ok bool) {
	cur := start
	for {
		switch t := cur.(type) {
		case *TableScan:
			return chain, t, true
		case *Filter:
			chain = append(chain, t)
			cur = t.Input
		case *Shuffle:
			chain = append(chain, t)
			cur = t.Input
		default:
			return nil, nil, false
		}
	}
}

// collectColumnRefs gathers every NthColumn index referenced directly by
// the given nodes' own expression fields (not recursing into their
// Input), assuming all of them are relative to the same schema.
func collectColumnRefs(nodes []Node) []int {
	set := map[int]bool{}
	var walk func(expr.Expr)
	walk = func(e expr.Expr) {
		switch n := e.(type) {
		case expr.NthColumn:
			set[n.Index] = true
		case expr.UnaryOp:
			walk(n.Inner)
		case expr.BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case expr.AggLeaf:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, n := range nodes {
		switch t := n.(type) {
		case *Filter:
			walk(t.Predicate)
		case *Shuffle:
			walk(t.Key)
		case *Select:
			for _, e := range t.Exprs {
				walk(e)
			}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func rewriteChainRefs(chain []Node, remap map[int]int) []Node {
	out := make([]Node, len(chain))
	for i, n := range chain {
		switch t := n.(type) {
		case *Filter:
			out[i] = &Filter{Predicate: rewriteRefs(t.Predicate, remap)}
		case *Shuffle:
			out[i] = &Shuffle{Key: rewriteRefs(t.Key, remap)}
		}
	}
	return out
}

func rewriteExprList(exprs []expr.Expr, remap map[int]int) []expr.Expr {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = rewriteRefs(e, remap)
	}
	return out
}

func rewriteRefs(e expr.Expr, remap map[int]int) expr.Expr {
	switch n := e.(type) {
	case expr.Literal:
		return n
	case expr.NthColumn:
		return expr.NthColumn{Index: remap[n.Index]}
	case expr.UnaryOp:
		return expr.UnaryOp{Inner: rewriteRefs(n.Inner, remap), Op: n.Op}
	case expr.BinaryOp:
		return expr.BinaryOp{Left: rewriteRefs(n.Left, remap), Right: rewriteRefs(n.Right, remap), Op: n.Op}
	case expr.AggLeaf:
		args := make([]expr.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = rewriteRefs(a, remap)
		}
		return expr.AggLeaf{Kind: n.Kind, Args: args, Params: n.Params}
	default:
		return e
	}
}

// attachChain rebuilds chain (top to bottom) over scan, wiring each
// node's Input to the one below it.
func attachChain(chain []Node, scan *TableScan) Node {
	var cur Node = scan
	for i := len(chain) - 1; i >= 0; i-- {
		switch t := chain[i].(type) {
		case *Filter:
			cur = &Filter{Input: cur, Predicate: t.Predicate}
		case *Shuffle:
			cur = &Shuffle{Input: cur, Key: t.Key}
		}
	}
	return cur
}

// ---- Rule 3: Select(GroupBy) -> GroupBySelect stream rewrite ----

// collapseSelectGroupByOnce fuses a Select directly above a GroupBy into
// a single GroupBySelect when the Select's expressions are exactly the
// group's key columns (in GroupBy.Keys order, as bare NthColumn
// passthroughs) followed by one or more aggregator leaves — the common
// "select key, agg(...), ... group by key" shape.
func collapseSelectGroupByOnce(n Node) (Node, bool) {
	sel, ok := n.(*Select)
	if !ok {
		return mapChildren(n, collapseSelectGroupByOnce)
	}
	if gb, ok := sel.Input.(*GroupBy); ok {
		if aggs, ok := canonicalGroupBySelectShape(sel.Exprs, gb.Keys); ok {
			return &GroupBySelect{Input: gb.Input, Keys: gb.Keys, Aggs: aggs}, true
		}
	}
	newInput, changed := collapseSelectGroupByOnce(sel.Input)
	return &Select{Input: newInput, Exprs: sel.Exprs}, changed
}

func canonicalGroupBySelectShape(exprs []expr.Expr, keys []int) ([]expr.AggLeaf, bool) {
	if len(exprs) < len(keys) {
		return nil, false
	}
	for i, k := range keys {
		nc, ok := exprs[i].(expr.NthColumn)
		if !ok || nc.Index != k {
			return nil, false
		}
	}
	aggs := make([]expr.AggLeaf, 0, len(exprs)-len(keys))
	for _, e := range exprs[len(keys):] {
		agg, ok := e.(expr.AggLeaf)
		if !ok {
			return nil, false
		}
		aggs = append(aggs, agg)
	}
	return aggs, true
}

// ---- Rule 4: expression compile ----

// compileExpressions JIT-compiles every Filter/Select/TableScan
// expression against its node's input schema, via the process-wide
// thunk cache, and stores the result on the node's unexported compiled
// field(s) for lowering to read.
func compileExpressions(n Node) error {
	switch t := n.(type) {
	case *TableScan:
		if t.Predicate != nil {
			thunk, err := expr.Global().GetOrCompile(t.Predicate, t.Schema)
			if err != nil {
				return err
			}
			t.compiledPredicate = thunk
		}
		return nil
	case *Filter:
		if err := compileExpressions(t.Input); err != nil {
			return err
		}
		schema, err := SchemaOf(t.Input)
		if err != nil {
			return err
		}
		thunk, err := expr.Global().GetOrCompile(t.Predicate, schema)
		if err != nil {
			return err
		}
		t.compiled = thunk
		return nil
	case *Select:
		if err := compileExpressions(t.Input); err != nil {
			return err
		}
		schema, err := SchemaOf(t.Input)
		if err != nil {
			return err
		}
		t.compiled = make([]expr.Thunk, len(t.Exprs))
		for i, e := range t.Exprs {
			thunk, err := expr.Global().GetOrCompile(e, schema)
			if err != nil {
				return err
			}
			t.compiled[i] = thunk
		}
		return nil
	case *Shuffle:
		return compileExpressions(t.Input)
	case *GroupBy:
		return compileExpressions(t.Input)
	case *GroupBySelect:
		return compileExpressions(t.Input)
	case *DropKey:
		return compileExpressions(t.Input)
	case *DropColumns:
		return compileExpressions(t.Input)
	case *CollectVec:
		return compileExpressions(t.Input)
	case *Join:
		if err := compileExpressions(t.Left); err != nil {
			return err
		}
		return compileExpressions(t.Right)
	default:
		return nil
	}
}
