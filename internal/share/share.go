// Package share encodes rule-set documents into URL-safe payloads for
// shareable links and decodes them back. Budget checks live here, not in the
// engine: the serialization format stays compact, this package surfaces how
// close a given payload is to the practical URL length limits.
package share

import (
	"encoding/base64"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-cli/internal/engine"
)

// QueryParam is the query parameter carrying the encoded rule set.
const QueryParam = "rules"

// Soft payload budget. Browsers and chat clients start truncating around
// 2000 characters; the warn threshold gives slack before that.
const (
	MaxEncodedLength  = 2000
	WarnEncodedLength = 1500
)

// Budget reports how an encoded payload sits against the soft limits.
type Budget struct {
	Length   int
	OverWarn bool
	OverMax  bool
}

// CheckBudget sizes an encoded payload against the soft limits.
func CheckBudget(encoded string) Budget {
	return Budget{
		Length:   len(encoded),
		OverWarn: len(encoded) > WarnEncodedLength,
		OverMax:  len(encoded) > MaxEncodedLength,
	}
}

// Encode serializes a document to compact JSON and base64url-encodes it.
// Oversized payloads are logged, not rejected; the budget is soft.
func Encode(doc *engine.Document) (string, error) {
	if doc == nil {
		return "", engine.ErrInvalidDocument
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "share: marshal document")
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	if b := CheckBudget(encoded); b.OverMax {
		zap.L().Warn("share payload exceeds URL budget", zap.Int("length", b.Length))
	} else if b.OverWarn {
		zap.L().Warn("share payload approaching URL budget", zap.Int("length", b.Length))
	}
	return encoded, nil
}

// Decode reverses Encode. Malformed payloads fail with a descriptive error;
// they arrive from untrusted URLs.
func Decode(encoded string) (*engine.Document, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, eris.Wrap(err, "share: decode payload")
	}
	return engine.ParseDocument(data)
}

// EncodeURL builds a shareable link with the encoded document attached to
// baseURL as the rules query parameter.
func EncodeURL(baseURL string, doc *engine.Document) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", eris.Wrapf(err, "share: parse base url %s", baseURL)
	}
	encoded, err := Encode(doc)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(QueryParam, encoded)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeURL extracts and decodes the rules payload from a shared link.
func DecodeURL(link string) (*engine.Document, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, eris.Wrapf(err, "share: parse url")
	}
	encoded := u.Query().Get(QueryParam)
	if encoded == "" {
		return nil, eris.Errorf("share: url has no %s parameter", QueryParam)
	}
	return Decode(encoded)
}
