package feature

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"id,latitude,t1,t2,p1,notes",
		"cell-1,48.8,-2.5,0.1,55,windy",
		"cell-2,-33.9,22.1,21.8,103,",
	}, "\n")

	feats, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, feats, 2)

	first := feats[0]
	assert.Equal(t, "cell-1", first.ID)
	assert.Equal(t, 48.8, first.Properties["latitude"])
	assert.Equal(t, -2.5, first.Properties["t1"])
	assert.Equal(t, "windy", first.Properties["notes"])

	second := feats[1]
	assert.Equal(t, -33.9, second.Properties["latitude"])
	_, hasNotes := second.Properties["notes"]
	assert.False(t, hasNotes, "empty cells are dropped")
}

func TestReadCSV_HeaderNormalized(t *testing.T) {
	feats, err := ReadCSV(strings.NewReader("ID, Latitude, T1\nx,10,5\n"))
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.Equal(t, "x", feats[0].ID)
	assert.Equal(t, 10.0, feats[0].Properties["latitude"])
	assert.Equal(t, 5.0, feats[0].Properties["t1"])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,t1\na,1\n"), 0o644))

	feats, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Len(t, feats, 1)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
