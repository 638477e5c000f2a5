package feature

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV decodes features from a headered CSV. Every numeric-looking cell
// becomes a float64 property; everything else stays a string. An `id` column
// becomes the feature id.
func ReadCSV(r io.Reader) ([]*Feature, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "feature: read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	var out []*Feature
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "feature: read csv line %d", line)
		}
		f := New("")
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			key := header[i]
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
		out = append(out, f)
	}
	return out, nil
}

// ReadCSVFile loads features from a CSV file at path.
func ReadCSVFile(path string) ([]*Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
