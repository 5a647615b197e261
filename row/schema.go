package row

import (
	"fmt"

	"github.com/chinifabio/renoir-go/errs"
)

// Schema is an ordered list of cell kinds with optional column names,
// per the named-column / no-string canonical model chosen for the two
// incompatible schema modules the source carried (see DESIGN.md).
type Schema struct {
	Kinds []Kind
	Names []string // len(Names) == len(Kinds) when non-nil; nil means unnamed
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Kinds) }

// Infer builds a schema from a sample row, leaving columns unnamed.
func Infer(r Row) Schema {
	kinds := make([]Kind, len(r.Cells))
	for i, c := range r.Cells {
		kinds[i] = c.Kind()
	}
	return Schema{Kinds: kinds}
}

// NameOf returns the column name at idx, or a positional placeholder if
// the schema is unnamed.
func (s Schema) NameOf(idx int) string {
	if s.Names != nil && idx < len(s.Names) {
		return s.Names[idx]
	}
	return fmt.Sprintf("_%d", idx)
}

// Project returns a new schema containing only the given column indices,
// in the given order; this is the schema-side counterpart of projection
// pushdown (§4.8) rewriting NthColumn indices.
func (s Schema) Project(indices []int) (Schema, error) {
	kinds := make([]Kind, len(indices))
	var names []string
	if s.Names != nil {
		names = make([]string, len(indices))
	}
	for i, idx := range indices {
		if idx < 0 || idx >= len(s.Kinds) {
			return Schema{}, errs.Newf(errs.CodeSchema, "projection index %d out of range for schema of width %d", idx, len(s.Kinds))
		}
		kinds[i] = s.Kinds[idx]
		if names != nil {
			names[i] = s.Names[idx]
		}
	}
	return Schema{Kinds: kinds, Names: names}, nil
}

// Extend appends columns of the given kinds (e.g. the result types of a
// Select's expressions) to the schema, naming them positionally if the
// schema is named.
func (s Schema) Extend(kinds ...Kind) Schema {
	out := Schema{
		Kinds: append(append([]Kind{}, s.Kinds...), kinds...),
	}
	if s.Names != nil {
		names := append([]string{}, s.Names...)
		for i := range kinds {
			names = append(names, fmt.Sprintf("_col%d", len(s.Names)+i))
		}
		out.Names = names
	}
	return out
}

// Merge concatenates this schema with a right-hand schema, used by
// joins (§3). Column name collisions on the right-hand side are
// resolved by appending "_right" (repeated if still colliding), leaving
// left-hand names untouched.
func Merge(left, right Schema) Schema {
	kinds := append(append([]Kind{}, left.Kinds...), right.Kinds...)
	if left.Names == nil && right.Names == nil {
		return Schema{Kinds: kinds}
	}
	names := make([]string, 0, len(kinds))
	seen := map[string]bool{}
	nameAt := func(s Schema, i int) string {
		if s.Names != nil && i < len(s.Names) {
			return s.Names[i]
		}
		return fmt.Sprintf("_%d", i)
	}
	for i := range left.Kinds {
		n := nameAt(left, i)
		seen[n] = true
		names = append(names, n)
	}
	for i := range right.Kinds {
		n := nameAt(right, i)
		for seen[n] {
			n += "_right"
		}
		seen[n] = true
		names = append(names, n)
	}
	return Schema{Kinds: kinds, Names: names}
}
