// Package operator defines the operator capability interface every
// pipeline stage implements: setup, next, structure, per §4.1.
package operator

import (
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
)

// Structure is a descriptive record of an operator chain used for
// introspection and cycle detection; each node names itself and lists
// its predecessor chain.
type Structure struct {
	Name        string
	Kind        string
	Predecessor *Structure
}

// Operator is the capability every pipeline stage implements. It is
// generic over the payload type T so user-built chains are statically
// typed end to end; heterogeneous storage (e.g. a block graph holding
// operators of differing T) goes through Box below.
//
// Implementations must be cloneable before Setup is called (see Cloner)
// and Send (safe to hand to a new goroutine) prior to that point; after
// Setup they may hold non-cloneable resources such as open channels.
type Operator[T any] interface {
	// Setup binds the operator to replica-specific resources. It must
	// recursively call Setup on its predecessor before returning.
	Setup(meta coord.ExecutionMetadata)

	// Next produces the next stream element, pulling from the
	// predecessor as needed. A transformer must not block once its
	// predecessor has produced an item; only a source may block on I/O.
	Next() element.StreamElement[T]

	// Structure returns a descriptive record of this operator and its
	// predecessor chain.
	Structure() Structure
}

// Cloner is implemented by operators so the scheduler can materialize
// one independent copy per replica before any copy is set up.
type Cloner[T any] interface {
	Clone() Operator[T]
}

// Boxed is the object-safe, type-erased operator interface used at
// plan-lowering seams where a chain must hold operators of differing
// concrete payload types. It is not used on the hot path inside a
// single statically-typed chain.
type Boxed interface {
	Setup(meta coord.ExecutionMetadata)
	Next() element.StreamElement[any]
	Structure() Structure
}

type boxedOp[T any] struct {
	inner Operator[T]
}

// Box erases an Operator[T]'s payload type to interface{} so it can be
// stored alongside operators of other payload types.
func Box[T any](op Operator[T]) Boxed {
	return &boxedOp[T]{inner: op}
}

func (b *boxedOp[T]) Setup(meta coord.ExecutionMetadata) { b.inner.Setup(meta) }

func (b *boxedOp[T]) Next() element.StreamElement[any] {
	e := b.inner.Next()
	return element.Map(e, func(v T) any { return v })
}

func (b *boxedOp[T]) Structure() Structure { return b.inner.Structure() }
