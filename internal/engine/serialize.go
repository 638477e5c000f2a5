package engine

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/climate-cli/internal/climate"
)

// Document format identifiers. DocVersion only changes when the persisted
// shape changes; engine-internal refactors must keep previously shared
// documents decodable.
const (
	DocVersion = "1.0.0"
	DocType    = "custom-rules"
)

// ErrInvalidDocument is returned when a rule document is structurally
// unusable (not an object, or missing its categories sequence).
var ErrInvalidDocument = eris.New("engine: invalid rule document")

// RuleSpec is the persisted form of a rule. Unit is intentionally absent: it
// is derived metadata, recomputed from the parameter table on load and never
// trusted from storage.
type RuleSpec struct {
	ID        string         `json:"id,omitempty" yaml:"id,omitempty"`
	Parameter string         `json:"parameter,omitempty" yaml:"parameter,omitempty"`
	Operator  string         `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value     *climate.Value `json:"value,omitempty" yaml:"value,omitempty"`
}

// CategorySpec is the persisted form of a category. Pointer fields
// distinguish "absent, use the default" from explicit zero values.
type CategorySpec struct {
	ID          string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string     `json:"name,omitempty" yaml:"name,omitempty"`
	Color       string     `json:"color,omitempty" yaml:"color,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     *bool      `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Priority    *int       `json:"priority,omitempty" yaml:"priority,omitempty"`
	Rules       []RuleSpec `json:"rules" yaml:"rules"`
}

// DocumentMeta carries export bookkeeping.
type DocumentMeta struct {
	ExportedAt time.Time `json:"exportedAt" yaml:"exportedAt"`
}

// Document is the versioned rule-set shape used for persistence, file
// import/export, and share-URL payloads.
type Document struct {
	Version    string         `json:"version" yaml:"version"`
	Type       string         `json:"type" yaml:"type"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Metadata   *DocumentMeta  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Categories []CategorySpec `json:"categories" yaml:"categories"`
}

// ToDocument snapshots the engine's categories as a Document.
func (e *Engine) ToDocument() *Document {
	doc := &Document{
		Version:    DocVersion,
		Type:       DocType,
		Categories: make([]CategorySpec, 0, len(e.categories)),
	}
	for _, cat := range e.categories {
		spec := CategorySpec{
			ID:          cat.ID,
			Name:        cat.Name,
			Color:       cat.Color,
			Description: cat.Description,
			Enabled:     boolPtr(cat.Enabled),
			Priority:    intPtr(cat.Priority),
			Rules:       make([]RuleSpec, 0, len(cat.Rules)),
		}
		for _, r := range cat.Rules {
			v := r.Value
			spec.Rules = append(spec.Rules, RuleSpec{
				ID:        r.ID,
				Parameter: r.Parameter,
				Operator:  r.Operator,
				Value:     &v,
			})
		}
		doc.Categories = append(doc.Categories, spec)
	}
	return doc
}

// FromDocument builds an engine from a document via the normal constructor
// path, so default-filling and priority renumbering apply uniformly to
// authored and deserialized data. A nil document or missing categories
// sequence fails with ErrInvalidDocument.
func FromDocument(doc *Document, opts ...Option) (*Engine, error) {
	if doc == nil || doc.Categories == nil {
		return nil, ErrInvalidDocument
	}
	return New(doc.Categories, opts...), nil
}

// ExportJSON serializes the engine to an indented document string with the
// given display name and an export timestamp.
func (e *Engine) ExportJSON(name string) (string, error) {
	doc := e.ToDocument()
	doc.Name = name
	doc.Metadata = &DocumentMeta{ExportedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "engine: marshal rule document")
	}
	return string(data), nil
}

// ImportJSON parses a document string and builds an engine from it.
// Malformed JSON fails with a parse error, never a raw decoder panic; a
// well-formed object without categories fails with ErrInvalidDocument.
func ImportJSON(data string, opts ...Option) (*Engine, error) {
	doc, err := ParseDocument([]byte(data))
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, opts...)
}

// ParseDocument decodes a JSON rule document without constructing an engine.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "engine: parse rule document")
	}
	if doc.Categories == nil {
		return nil, ErrInvalidDocument
	}
	return &doc, nil
}

// ParseDocumentYAML decodes a YAML rule document (preset files).
func ParseDocumentYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "engine: parse rule document")
	}
	if doc.Categories == nil {
		return nil, ErrInvalidDocument
	}
	return &doc, nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
