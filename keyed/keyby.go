// Package keyed implements the stateful per-key operators of spec §4.4:
// KeyBy, GroupBy, Reduce, Fold, and the associative two-stage fold used
// when the downstream ship strategy is group-by-hash.
package keyed

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/operator"
	"github.com/chinifabio/renoir-go/row"
)

// KeyFunc computes the key cells for an unkeyed row.
type KeyFunc func(row.Row) []row.Cell

// keyByOp attaches a key to every item/timestamped row pulled from its
// predecessor by absorbing KeyFunc's result as the row's key prefix;
// control elements pass through untouched.
type keyByOp struct {
	pred operator.Operator[row.Row]
	key  KeyFunc
}

// KeyBy wraps pred so every payload row it produces carries a key
// prefix computed by key. GroupBy is this operator immediately followed,
// at block-build time, by a group-by-hash ship edge (§4.4) — GroupBy
// itself is not a distinct operator, only the ship.GroupByHash strategy
// chosen for the block's End.
func KeyBy(pred operator.Operator[row.Row], key KeyFunc) operator.Operator[row.Row] {
	return &keyByOp{pred: pred, key: key}
}

func (k *keyByOp) Setup(meta coord.ExecutionMetadata) { k.pred.Setup(meta) }

func (k *keyByOp) Next() element.StreamElement[row.Row] {
	e := k.pred.Next()
	v, ok := e.Payload()
	if !ok {
		return e
	}
	keyed, err := v.AbsorbKey(k.key(v))
	if err != nil {
		// Already keyed upstream: pass the row through unchanged rather
		// than failing the replica over a redundant KeyBy.
		keyed = v
	}
	if e.Tag() == element.TagTimestamped {
		return element.Timestamped(keyed, e.Timestamp())
	}
	return element.Item(keyed)
}

func (k *keyByOp) Structure() operator.Structure {
	return operator.Structure{Name: "key_by", Kind: "keyed", Predecessor: predStruct(k.pred)}
}

func (k *keyByOp) Clone() operator.Operator[row.Row] {
	return &keyByOp{pred: clonePred(k.pred), key: k.key}
}

func predStruct(pred operator.Operator[row.Row]) *operator.Structure {
	s := pred.Structure()
	return &s
}

// clonePred clones a predecessor if it exposes Clone, otherwise returns
// it unchanged (already-stateless operators are safe to share before
// setup since they hold no per-replica resources yet).
func clonePred(pred operator.Operator[row.Row]) operator.Operator[row.Row] {
	if c, ok := pred.(operator.Cloner[row.Row]); ok {
		return c.Clone()
	}
	return pred
}
