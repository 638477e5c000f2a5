package feature

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cells.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("cells")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, name := range []string{"ID", "Latitude", "T1", "P1"} {
		header.AddCell().SetString(name)
	}
	row := sheet.AddRow()
	row.AddCell().SetString("cell-1")
	row.AddCell().SetFloat(48.8)
	row.AddCell().SetFloat(-2.5)
	row.AddCell().SetFloat(55)

	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeTestXLSX(t)

	feats, err := ReadXLSX(path)
	require.NoError(t, err)
	require.Len(t, feats, 1)

	f := feats[0]
	assert.Equal(t, "cell-1", f.ID)
	assert.Equal(t, 48.8, f.Properties["latitude"])
	assert.Equal(t, -2.5, f.Properties["t1"])
	assert.Equal(t, 55.0, f.Properties["p1"])
}

func TestReadXLSX_Missing(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
