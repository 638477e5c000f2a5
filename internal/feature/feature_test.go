package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/climate-cli/internal/climate"
)

func TestNumeric(t *testing.T) {
	f := New("cell-1")
	f.Properties["t1"] = 4.5
	f.Properties["count"] = 3
	f.Properties["encoded"] = "12.5"
	f.Properties["name"] = "alpine"

	tests := []struct {
		name     string
		key      string
		expected float64
		ok       bool
	}{
		{name: "float", key: "t1", expected: 4.5, ok: true},
		{name: "int", key: "count", expected: 3, ok: true},
		{name: "numeric string", key: "encoded", expected: 12.5, ok: true},
		{name: "non-numeric string", key: "name", ok: false},
		{name: "missing", key: "nope", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := f.Numeric(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, v)
			}
		})
	}
}

func TestClimateProperties(t *testing.T) {
	t.Run("numeric properties carried over", func(t *testing.T) {
		f := New("cell-1")
		f.Properties["t1"] = 5.0
		f.Properties["latitude"] = -33.0
		f.Properties["name"] = "ignored"

		props := f.ClimateProperties()
		assert.Equal(t, 5.0, props["t1"])
		assert.Equal(t, -33.0, props[climate.PropLatitude])
		_, ok := props["name"]
		assert.False(t, ok)
	})

	t.Run("latitude falls back to geometry center", func(t *testing.T) {
		f := New("cell-2")
		f.Geometry = geom.NewPolygonFlat(geom.XY, []float64{
			10, -40, 11, -40, 11, -41, 10, -41, 10, -40,
		}, []int{10})

		props := f.ClimateProperties()
		assert.InDelta(t, -40.5, props[climate.PropLatitude], 1e-9)
	})

	t.Run("explicit latitude wins over geometry", func(t *testing.T) {
		f := New("cell-3")
		f.Geometry = geom.NewPointFlat(geom.XY, []float64{0, 60})
		f.Properties["latitude"] = -10.0

		props := f.ClimateProperties()
		assert.Equal(t, -10.0, props[climate.PropLatitude])
	})
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("cells.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input format")
}
