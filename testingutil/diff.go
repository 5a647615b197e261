// Package testingutil provides a row-set diff helper for operator and
// windowing tests (the tests in this module do not call it outside this
// package's own tests): sort both sides by key, walk them row by row, and
// report every point of divergence plus any left-over rows on either
// side, rather than re-deriving a one-off reflect.DeepEqual assertion
// per test.
package testingutil

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chinifabio/renoir-go/row"
)

// DefaultEpsilon is the default float tolerance used when comparing
// Float32 cells.
const DefaultEpsilon = 1e-6

// Diff compares two row sets for equality up to row order, reporting a
// human-readable description of every mismatch (extra/missing rows and
// rows that differ cell by cell), or "" if they are equal. Float32
// cells are compared within DefaultEpsilon.
func Diff(want, got []row.Row) string {
	return DiffEpsilon(want, got, DefaultEpsilon)
}

// DiffEpsilon is Diff with an explicit float tolerance.
func DiffEpsilon(want, got []row.Row, epsilon float64) string {
	w := sortedCopy(want)
	g := sortedCopy(got)

	var lines []string
	i, j := 0, 0
	for i < len(w) && j < len(g) {
		if rowsEqual(w[i], g[j], epsilon) {
			i++
			j++
			continue
		}
		switch compareRows(w[i], g[j]) {
		case 0:
			if !rowsEqual(w[i], g[j], epsilon) {
				lines = append(lines, "- "+formatRow(w[i]))
				lines = append(lines, "+ "+formatRow(g[j]))
			}
			i++
			j++
		case -1:
			lines = append(lines, "- "+formatRow(w[i]))
			i++
		default:
			lines = append(lines, "+ "+formatRow(g[j]))
			j++
		}
	}
	for ; i < len(w); i++ {
		lines = append(lines, "- "+formatRow(w[i]))
	}
	for ; j < len(g); j++ {
		lines = append(lines, "+ "+formatRow(g[j]))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func formatRow(r row.Row) string {
	cells := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = c.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(cells, ", "))
}

func sortedCopy(rows []row.Row) []row.Row {
	out := make([]row.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return compareRows(out[i], out[j]) < 0
	})
	return out
}

func compareRows(a, b row.Row) int {
	n := len(a.Cells)
	if len(b.Cells) < n {
		n = len(b.Cells)
	}
	for i := 0; i < n; i++ {
		if c := row.Compare(a.Cells[i], b.Cells[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.Cells) < len(b.Cells):
		return -1
	case len(a.Cells) > len(b.Cells):
		return 1
	default:
		return 0
	}
}

func rowsEqual(a, b row.Row, epsilon float64) bool {
	if len(a.Cells) != len(b.Cells) {
		return false
	}
	for i := range a.Cells {
		ac, bc := a.Cells[i], b.Cells[i]
		if af, ok := ac.AsFloat32(); ok {
			if bf, ok := bc.AsFloat32(); ok {
				if math.Abs(float64(af-bf)) > epsilon {
					return false
				}
				continue
			}
		}
		if !row.Equal(ac, bc) {
			return false
		}
	}
	return true
}
