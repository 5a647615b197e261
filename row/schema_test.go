package row_test

import (
	"testing"

	"github.com/chinifabio/renoir-go/row"
	"github.com/stretchr/testify/require"
)

func TestSchemaProjectAndMerge(t *testing.T) {
	s := row.Schema{Kinds: []row.Kind{row.KindInt32, row.KindFloat32, row.KindBool}, Names: []string{"a", "b", "c"}}
	proj, err := s.Project([]int{2, 0})
	require.NoError(t, err)
	require.Equal(t, []row.Kind{row.KindBool, row.KindInt32}, proj.Kinds)
	require.Equal(t, []string{"c", "a"}, proj.Names)

	_, err = s.Project([]int{5})
	require.Error(t, err)

	right := row.Schema{Kinds: []row.Kind{row.KindInt32}, Names: []string{"a"}}
	merged := row.Merge(s, right)
	require.Equal(t, []string{"a", "b", "c", "a_right"}, merged.Names)
}

func TestSchemaInferAndExtend(t *testing.T) {
	r := row.New(row.Int32(1), row.Bool(true))
	s := row.Infer(r)
	require.Equal(t, []row.Kind{row.KindInt32, row.KindBool}, s.Kinds)

	extended := s.Extend(row.KindFloat32)
	require.Equal(t, []row.Kind{row.KindInt32, row.KindBool, row.KindFloat32}, extended.Kinds)
}
