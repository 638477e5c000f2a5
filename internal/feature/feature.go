// Package feature loads geographic grid-cell features with monthly climate
// records from GeoJSON, CSV, shapefile, and XLSX sources, and writes
// classified features back out as GeoJSON.
package feature

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/climate-cli/internal/climate"
)

// Feature is one spatial cell: an optional geometry plus an opaque property
// bag holding monthly series (t1..t12, p1..p12), latitude, and any
// precomputed aggregates. Properties are read-only to the classifier except
// for the climate_* outputs it attaches.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// New returns a feature with an initialized property bag.
func New(id string) *Feature {
	return &Feature{ID: id, Properties: make(map[string]any)}
}

// Numeric returns the named property as a float64 when it holds any numeric
// type or a parseable numeric string.
func (f *Feature) Numeric(key string) (float64, bool) {
	return toFloat(f.Properties[key])
}

// ClimateProperties projects the numeric properties into a climate record.
// Latitude falls back to the geometry's bounds center when the property is
// absent, so bare GeoJSON cells still get hemisphere-correct seasonal
// windows.
func (f *Feature) ClimateProperties() climate.Properties {
	props := make(climate.Properties, len(f.Properties))
	for k, v := range f.Properties {
		if n, ok := toFloat(v); ok {
			props[k] = n
		}
	}
	if _, ok := props[climate.PropLatitude]; !ok && f.Geometry != nil {
		b := f.Geometry.Bounds()
		props[climate.PropLatitude] = (b.Min(1) + b.Max(1)) / 2
	}
	return props
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
}

// ReadFile loads features from path, picking the codec by extension.
func ReadFile(path string) ([]*Feature, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return ReadGeoJSONFile(path)
	case ".csv":
		return ReadCSVFile(path)
	case ".shp":
		return ReadShapefile(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("feature: unsupported input format %q", filepath.Ext(path))
	}
}
