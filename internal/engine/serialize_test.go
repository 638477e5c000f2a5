package engine

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-cli/internal/climate"
)

func TestToDocument(t *testing.T) {
	e := bandEngine()
	doc := e.ToDocument()

	assert.Equal(t, DocVersion, doc.Version)
	assert.Equal(t, DocType, doc.Type)
	require.Len(t, doc.Categories, 3)

	t.Run("unit is not persisted", func(t *testing.T) {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"unit"`)
	})
}

func TestDocumentRoundTrip(t *testing.T) {
	enabled := false
	original := New([]CategorySpec{
		{ID: "dry", Name: "Arid", Color: "#ff7f0e", Description: "desert belt", Rules: []RuleSpec{
			{Parameter: climate.ParamAridityIndex, Operator: climate.OpLess, Value: scalar(20)},
		}},
		{ID: "wet", Name: "Humid", Enabled: &enabled, Rules: []RuleSpec{
			{Parameter: climate.ParamMAP, Operator: climate.OpInRange, Value: rangeVal(1000, 4000)},
		}},
	}, WithIDGenerator(seqIDs()))

	data, err := json.Marshal(original.ToDocument())
	require.NoError(t, err)

	restored, err := ImportJSON(string(data), WithIDGenerator(seqIDs()))
	require.NoError(t, err)

	want := original.SortedCategories()
	got := restored.SortedCategories()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Color, got[i].Color)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Enabled, got[i].Enabled)
		assert.Equal(t, want[i].Priority, got[i].Priority)
		require.Len(t, got[i].Rules, len(want[i].Rules))
		for j := range want[i].Rules {
			assert.Equal(t, want[i].Rules[j].Parameter, got[i].Rules[j].Parameter)
			assert.Equal(t, want[i].Rules[j].Operator, got[i].Rules[j].Operator)
			assert.Equal(t, want[i].Rules[j].Value, got[i].Rules[j].Value)
			// Unit is recomputed from the parameter table, not restored.
			assert.Equal(t, want[i].Rules[j].Unit, got[i].Rules[j].Unit)
		}
	}
}

func TestExportJSON(t *testing.T) {
	out, err := bandEngine().ExportJSON("my custom bands")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "my custom bands", doc.Name)
	require.NotNil(t, doc.Metadata)
	assert.False(t, doc.Metadata.ExportedAt.IsZero())
	assert.Len(t, doc.Categories, 3)
}

func TestImportJSON_Malformed(t *testing.T) {
	t.Run("not valid json", func(t *testing.T) {
		_, err := ImportJSON("{nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse rule document")
	})

	t.Run("valid json without categories", func(t *testing.T) {
		_, err := ImportJSON(`{"version":"1.0.0","type":"custom-rules"}`)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidDocument))
	})

	t.Run("empty categories is a valid empty engine", func(t *testing.T) {
		e, err := ImportJSON(`{"categories":[]}`)
		require.NoError(t, err)
		assert.Zero(t, e.Len())
	})

	t.Run("failed import leaves existing engines alone", func(t *testing.T) {
		e := bandEngine()
		before := e.ToDocument()
		_, err := ImportJSON("!!!")
		require.Error(t, err)
		assert.Equal(t, before, e.ToDocument())
	})
}

func TestFromDocument_Nil(t *testing.T) {
	_, err := FromDocument(nil)
	assert.True(t, eris.Is(err, ErrInvalidDocument))
}

func TestParseDocumentYAML(t *testing.T) {
	doc, err := ParseDocumentYAML([]byte(`
version: "1.0.0"
type: custom-rules
categories:
  - id: tundra
    name: Tundra
    rules:
      - parameter: tmax
        operator: "<"
        value: 10
      - parameter: tmin
        operator: in_range
        value: [-60, 0]
`))
	require.NoError(t, err)
	require.Len(t, doc.Categories, 1)
	require.Len(t, doc.Categories[0].Rules, 2)
	assert.Equal(t, 10.0, doc.Categories[0].Rules[0].Value.Number())
	assert.True(t, doc.Categories[0].Rules[1].Value.IsRange)

	_, err = ParseDocumentYAML([]byte("version: [broken"))
	assert.Error(t, err)

	_, err = ParseDocumentYAML([]byte("version: '1.0.0'"))
	assert.True(t, eris.Is(err, ErrInvalidDocument))
}
