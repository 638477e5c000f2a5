package feature

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX loads features from the first sheet of an XLSX workbook. The
// first row is the header; cells parse like CSV cells.
func ReadXLSX(path string) ([]*Feature, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("feature: xlsx %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = strings.TrimSpace(strings.ToLower(cell.String()))
	}

	var out []*Feature
	for _, row := range sheet.Rows[1:] {
		feat := New("")
		for i, cell := range row.Cells {
			if i >= len(header) {
				break
			}
			key := header[i]
			text := strings.TrimSpace(cell.String())
			if key == "id" {
				feat.ID = text
				continue
			}
			if n, ok := parseFloat(text); ok {
				feat.Properties[key] = n
			} else if text != "" {
				feat.Properties[key] = text
			}
		}
		out = append(out, feat)
	}
	return out, nil
}
