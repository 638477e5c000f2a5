package feature

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "cell-1",
			"geometry": {"type": "Point", "coordinates": [13.4, 52.5]},
			"properties": {"t1": -1.5, "p1": 42, "latitude": 52.5}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [151.2, -33.9]},
			"properties": {"t1": 22.1}
		}
	]
}`

func TestReadGeoJSON(t *testing.T) {
	feats, err := ReadGeoJSON(strings.NewReader(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, feats, 2)

	assert.Equal(t, "cell-1", feats[0].ID)
	v, ok := feats[0].Numeric("t1")
	require.True(t, ok)
	assert.Equal(t, -1.5, v)

	// Second feature has no latitude property; the geometry supplies it.
	props := feats[1].ClimateProperties()
	assert.InDelta(t, -33.9, props["latitude"], 1e-9)
}

func TestReadGeoJSON_Malformed(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader("{not geojson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse geojson")
}

func TestGeoJSONRoundTrip(t *testing.T) {
	feats, err := ReadGeoJSON(strings.NewReader(sampleGeoJSON))
	require.NoError(t, err)

	feats[0].Properties["climate_name"] = "Temperate"

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, feats))

	again, err := ReadGeoJSON(&buf)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "Temperate", again[0].Properties["climate_name"])
	assert.NotNil(t, again[0].Geometry)
}
