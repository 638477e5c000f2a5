package feature

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ReadGeoJSON decodes a GeoJSON FeatureCollection.
func ReadGeoJSON(r io.Reader) ([]*Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "feature: read geojson")
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "feature: parse geojson")
	}
	out := make([]*Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		f := &Feature{
			ID:         gf.ID,
			Geometry:   gf.Geometry,
			Properties: gf.Properties,
		}
		if f.Properties == nil {
			f.Properties = make(map[string]any)
		}
		out = append(out, f)
	}
	return out, nil
}

// ReadGeoJSONFile loads a GeoJSON FeatureCollection from path.
func ReadGeoJSONFile(path string) ([]*Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open %s", path)
	}
	defer f.Close()
	return ReadGeoJSON(f)
}

// WriteGeoJSON encodes features as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, features []*Feature) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "feature: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "feature: write geojson")
	}
	return nil
}

// WriteGeoJSONFile writes features to path as a GeoJSON FeatureCollection.
func WriteGeoJSONFile(path string, features []*Feature) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "feature: create %s", path)
	}
	defer f.Close()
	return WriteGeoJSON(f, features)
}
