// Package row defines the typed cell, the row, and the schema that
// together form the typed-row layout the expression evaluator, JIT and
// logical plan all operate over.
package row

import (
	"fmt"
	"math"
)

// Kind tags the variant a Cell holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindNaN
	KindBool
	KindInt32
	KindFloat32
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNaN:
		return "nan"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// Cell is a single typed value: Int32, Float32, Bool, NaN (a typed
// failure result, distinct from missing), or None (missing). It is a
// small value type copied by value, never a pointer, so rows can be
// laid out contiguously.
type Cell struct {
	kind Kind
	i32  int32
	f32  float32
	b    bool
}

// None is the missing-value cell.
func None() Cell { return Cell{kind: KindNone} }

// NaNCell is the not-a-number cell produced by invalid arithmetic.
func NaNCell() Cell { return Cell{kind: KindNaN} }

// Int32 wraps an int32 value.
func Int32(v int32) Cell { return Cell{kind: KindInt32, i32: v} }

// Float32 wraps a float32 value.
func Float32(v float32) Cell {
	if v != v { // NaN float collapses to the NaN variant, not a float holding NaN
		return NaNCell()
	}
	return Cell{kind: KindFloat32, f32: v}
}

// Bool wraps a bool value.
func Bool(v bool) Cell { return Cell{kind: KindBool, b: v} }

// Kind reports which variant is held.
func (c Cell) Kind() Kind { return c.kind }

// IsNone reports whether the cell is missing.
func (c Cell) IsNone() bool { return c.kind == KindNone }

// IsNaN reports whether the cell is the NaN variant.
func (c Cell) IsNaN() bool { return c.kind == KindNaN }

// AsInt32 returns the int32 payload and whether the cell actually held one.
func (c Cell) AsInt32() (int32, bool) { return c.i32, c.kind == KindInt32 }

// AsFloat32 returns the float32 payload and whether the cell actually held one.
func (c Cell) AsFloat32() (float32, bool) { return c.f32, c.kind == KindFloat32 }

// AsBool returns the bool payload and whether the cell actually held one.
func (c Cell) AsBool() (bool, bool) { return c.b, c.kind == KindBool }

// Float64 widens any numeric cell to float64, used by aggregators that
// need a uniform accumulation type. NaN/None/Bool are not numeric and
// return (0, false).
func (c Cell) Float64() (float64, bool) {
	switch c.kind {
	case KindInt32:
		return float64(c.i32), true
	case KindFloat32:
		return float64(c.f32), true
	default:
		return 0, false
	}
}

func (c Cell) String() string {
	switch c.kind {
	case KindNone:
		return "None"
	case KindNaN:
		return "NaN"
	case KindBool:
		return fmt.Sprintf("%v", c.b)
	case KindInt32:
		return fmt.Sprintf("%d", c.i32)
	case KindFloat32:
		return fmt.Sprintf("%g", c.f32)
	default:
		return "?"
	}
}

// rank gives each Kind its position in the total order:
// None < NaN < Bool(false) < Bool(true) < Int32 < Float32.
func (k Kind) rank() int {
	switch k {
	case KindNone:
		return 0
	case KindNaN:
		return 1
	case KindBool:
		return 2
	case KindInt32:
		return 3
	case KindFloat32:
		return 4
	default:
		return 5
	}
}

// Compare implements the total order across variants described in §4.9:
// cross-variant comparisons order by Kind rank; within a variant, by
// natural order (bools: false < true).
func Compare(a, b Cell) int {
	if a.kind != b.kind {
		return a.kind.rank() - b.kind.rank()
	}
	switch a.kind {
	case KindNone, KindNaN:
		return 0
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindInt32:
		switch {
		case a.i32 < b.i32:
			return -1
		case a.i32 > b.i32:
			return 1
		default:
			return 0
		}
	case KindFloat32:
		switch {
		case a.f32 < b.f32:
			return -1
		case a.f32 > b.f32:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Equal reports cell equality using Compare, i.e. NaN == NaN (unlike
// IEEE-754 float semantics) since NaN here is a single total-order
// variant rather than a float payload.
func Equal(a, b Cell) bool { return Compare(a, b) == 0 }

// HashBits returns a stable 64-bit hash of the cell for use in group-by
// hashing and key equality maps. Int32 values are shifted clear of the
// low tag bits so distinct values never share a hash. Float32 hashes via
// its bit pattern (to_bits), per §4.9, so 0.0 and -0.0 hash differently
// even though Compare treats them as equal; NaN never reaches this
// branch, since it is its own variant.
func (c Cell) HashBits() uint64 {
	switch c.kind {
	case KindNone:
		return 0
	case KindNaN:
		return 1
	case KindBool:
		if c.b {
			return 3
		}
		return 2
	case KindInt32:
		return uint64(uint32(c.i32))<<3 | 4
	case KindFloat32:
		return uint64(math.Float32bits(c.f32))<<3 | 5
	default:
		return 0
	}
}
