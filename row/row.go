package row

import (
	"strconv"
	"strings"

	"github.com/chinifabio/renoir-go/errs"
)

// Row is an ordered sequence of cells with an optional key prefix: the
// first KeyLen cells form the key, the remainder the value. A KeyLen of
// zero means the row is unkeyed.
type Row struct {
	Cells  []Cell
	KeyLen int
}

// New builds an unkeyed row from cells.
func New(cells ...Cell) Row {
	return Row{Cells: cells}
}

// Key returns the key prefix.
func (r Row) Key() []Cell { return r.Cells[:r.KeyLen] }

// Value returns the cells after the key prefix.
func (r Row) Value() []Cell { return r.Cells[r.KeyLen:] }

// IsKeyed reports whether the row carries a non-empty key prefix.
func (r Row) IsKeyed() bool { return r.KeyLen > 0 }

// SameKey reports whether two keyed rows compare equal, cell-wise, on
// their key prefixes.
func SameKey(a, b Row) bool {
	if a.KeyLen != b.KeyLen {
		return false
	}
	for i := 0; i < a.KeyLen; i++ {
		if !Equal(a.Cells[i], b.Cells[i]) {
			return false
		}
	}
	return true
}

// AbsorbKey promotes the given cells to be the new key prefix of an
// unkeyed row. It is only permitted on an unkeyed row: absorbing a key
// into an already-keyed row is rejected, matching the double-absorb
// invariant of §8.
func (r Row) AbsorbKey(key []Cell) (Row, error) {
	if r.IsKeyed() {
		return Row{}, errs.New(errs.CodeInvalid, "cannot absorb a key into an already-keyed row")
	}
	cells := make([]Cell, 0, len(key)+len(r.Cells))
	cells = append(cells, key...)
	cells = append(cells, r.Cells...)
	return Row{Cells: cells, KeyLen: len(key)}, nil
}

// DropKey zeroes the key prefix, returning an unkeyed row containing
// only the value cells. Dropping the key of an already-unkeyed row is
// the identity.
func (r Row) DropKey() Row {
	if r.KeyLen == 0 {
		return r
	}
	cells := make([]Cell, len(r.Value()))
	copy(cells, r.Value())
	return Row{Cells: cells}
}

// KeyString encodes a key cell slice as a comparable Go string, suitable
// for use as a map key by keyed operators and join state. It folds in
// each cell's Kind and HashBits, so cells that compare Equal (including
// the NaN/None total-order collapse of §4.9) produce the same string,
// with one exception: Float32 0.0 and -0.0 compare Equal but produce
// different strings, because HashBits uses the float's bit pattern.
func KeyString(key []Cell) string {
	var b strings.Builder
	for i, c := range key {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteByte(byte(c.Kind()))
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(c.HashBits(), 36))
	}
	return b.String()
}

// Clone deep-copies the cell slice so callers can mutate the result
// without aliasing the source row (cells themselves are value types, so
// this only needs to copy the slice header's backing array).
func (r Row) Clone() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Cells: cells, KeyLen: r.KeyLen}
}
