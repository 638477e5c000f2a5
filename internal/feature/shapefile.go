package feature

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ReadShapefile loads features from an ESRI shapefile. Attribute values are
// numeric-parsed like CSV cells. Point shapes keep their geometry; other
// shape types collapse to their bounding-box center, which is all the
// classifier needs (hemisphere comes from the centroid latitude).
func ReadShapefile(path string) ([]*Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	var out []*Feature
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		f := New("")
		for i := range fields {
			key := strings.ToLower(strings.TrimSpace(fields[i].String()))
			cell := strings.TrimSpace(reader.Attribute(i))
			if key == "id" {
				f.ID = cell
				continue
			}
			if n, ok := parseFloat(cell); ok {
				f.Properties[key] = n
			} else if cell != "" {
				f.Properties[key] = cell
			}
		}
		f.Geometry = shapeGeometry(shape)
		out = append(out, f)
	}
	return out, nil
}

func shapeGeometry(shape shp.Shape) geom.T {
	if p, ok := shape.(*shp.Point); ok {
		return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y})
	}
	box := shape.BBox()
	return geom.NewPointFlat(geom.XY, []float64{
		(box.MinX + box.MaxX) / 2,
		(box.MinY + box.MaxY) / 2,
	})
}
