package climate

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Value is a rule comparand: a scalar for comparison operators or a
// [low, high] pair for range operators. The wire form is either a bare
// number or a two-element array.
type Value struct {
	Scalar  float64
	Low     float64
	High    float64
	IsRange bool
}

// Scalar returns a scalar Value.
func NewScalar(v float64) Value {
	return Value{Scalar: v}
}

// NewRange returns a [low, high] range Value.
func NewRange(low, high float64) Value {
	return Value{Low: low, High: high, IsRange: true}
}

// Bounds returns the inclusive bounds of the value. A scalar collapses to
// [scalar, scalar] so range operators degrade gracefully on mis-typed rules.
func (v Value) Bounds() (low, high float64) {
	if v.IsRange {
		return v.Low, v.High
	}
	return v.Scalar, v.Scalar
}

// Number returns the scalar comparand. A range collapses to its lower bound
// so comparison operators degrade gracefully on mis-typed rules.
func (v Value) Number() float64 {
	if v.IsRange {
		return v.Low
	}
	return v.Scalar
}

// MarshalJSON encodes a scalar as a number and a range as [low, high].
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsRange {
		return json.Marshal([2]float64{v.Low, v.High})
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON accepts either a number or a two-element numeric array.
func (v *Value) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*v = NewScalar(scalar)
		return nil
	}
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err == nil {
		*v = NewRange(pair[0], pair[1])
		return nil
	}
	return eris.Errorf("climate: rule value must be a number or [low, high] pair, got %s", string(data))
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON for YAML presets.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var scalar float64
	if err := node.Decode(&scalar); err == nil {
		*v = NewScalar(scalar)
		return nil
	}
	var pair [2]float64
	if err := node.Decode(&pair); err == nil {
		*v = NewRange(pair[0], pair[1])
		return nil
	}
	return eris.Errorf("climate: rule value must be a number or [low, high] pair (line %d)", node.Line)
}

// MarshalYAML mirrors MarshalJSON for YAML presets.
func (v Value) MarshalYAML() (any, error) {
	if v.IsRange {
		return [2]float64{v.Low, v.High}, nil
	}
	return v.Scalar, nil
}
