package table

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_StripsBOMAndPads(t *testing.T) {
	in := "\ufeffdebtor_inn,creditor_inn,note\n0012345678,7707083893\n"

	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"debtor_inn", "creditor_inn", "note"}, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"0012345678", "7707083893", ""}, tbl.Rows[0], "leading zeros kept, short rows padded")
}

func TestRequire(t *testing.T) {
	tbl := &Table{Header: []string{"a", "b"}}

	idx, err := tbl.Require("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, idx)

	_, err = tbl.Require("a", "ip")
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestSetColumn(t *testing.T) {
	tbl := &Table{Header: []string{"a"}, Rows: [][]string{{"1"}, {"2"}}}

	require.NoError(t, tbl.SetColumn("out", []string{"x", "y"}))
	require.NoError(t, tbl.SetColumn("out", []string{"x2", "y2"}))
	assert.Equal(t, []string{"a", "out"}, tbl.Header)
	assert.Equal(t, [][]string{{"1", "x2"}, {"2", "y2"}}, tbl.Rows)

	assert.Error(t, tbl.SetColumn("bad", []string{"only one"}))
}

func TestWrite_RoundTripWithBOM(t *testing.T) {
	tbl := &Table{
		Header: []string{"debtor_inn", "links"},
		Rows:   [][]string{{"1", "01.03.2024: http://x/a.pdf\n01.01.2023: http://x/b.pdf"}},
	}

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), bom))

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	tbl := &Table{Header: []string{"a"}, Rows: [][]string{{"Решение"}}}

	require.NoError(t, tbl.WriteFile(path))
	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Решение", back.Rows[0][0])
}
