package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-cli/internal/climate"
	"github.com/sells-group/climate-cli/internal/feature"
)

// bandEngine is the three-band example set: Tropical (Tmin >= 18),
// Temperate (-3 <= Tmin < 18), Cold (Tmin < -3).
func bandEngine() *Engine {
	return New(ExamplePreset(), WithIDGenerator(seqIDs()))
}

func tminProps(v float64) climate.Properties {
	return climate.Properties{climate.PropMinTemp: v, climate.PropLatitude: 40}
}

func TestClassify_Bands(t *testing.T) {
	e := bandEngine()

	tests := []struct {
		name     string
		tmin     float64
		expected string
	}{
		{name: "hot cell is tropical", tmin: 20, expected: "tropical"},
		{name: "tropical boundary", tmin: 18, expected: "tropical"},
		{name: "mild cell is temperate", tmin: 10, expected: "temperate"},
		{name: "temperate lower bound", tmin: -3, expected: "temperate"},
		{name: "cold cell", tmin: -10, expected: "cold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := e.Classify(tminProps(tt.tmin))
			require.True(t, m.OK)
			assert.Equal(t, tt.expected, m.CategoryID)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Both categories match Tmin = 25; the lower priority one must win.
	e := newTestEngine(
		CategorySpec{ID: "warm", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(10)},
		}},
		CategorySpec{ID: "very-warm", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(20)},
		}},
	)

	m := e.Classify(tminProps(25))
	require.True(t, m.OK)
	assert.Equal(t, "warm", m.CategoryID)
}

func TestClassify_AllRulesMustPass(t *testing.T) {
	e := newTestEngine(
		CategorySpec{ID: "warm-wet", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(10)},
			{Parameter: climate.ParamMAP, Operator: climate.OpGreaterEq, Value: scalar(1000)},
		}},
		CategorySpec{ID: "warm", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(10)},
		}},
	)

	props := tminProps(15)
	props[climate.PropTotalPrecip] = 400 // fails the wet rule

	m := e.Classify(props)
	require.True(t, m.OK)
	assert.Equal(t, "warm", m.CategoryID)
}

func TestClassify_EmptyRuleListNeverMatches(t *testing.T) {
	e := newTestEngine(
		CategorySpec{ID: "catch-nothing"},
		CategorySpec{ID: "cold", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpLess, Value: scalar(0)},
		}},
	)

	m := e.Classify(tminProps(-5))
	require.True(t, m.OK)
	assert.Equal(t, "cold", m.CategoryID)

	assert.False(t, e.Classify(tminProps(5)).OK)
}

func TestClassify_SkipsDisabled(t *testing.T) {
	enabled := false
	e := newTestEngine(
		CategorySpec{ID: "off", Enabled: &enabled, Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(0)},
		}},
		CategorySpec{ID: "on", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(0)},
		}},
	)

	m := e.Classify(tminProps(10))
	require.True(t, m.OK)
	assert.Equal(t, "on", m.CategoryID)
}

func TestClassify_UntrustedRuleData(t *testing.T) {
	// Unknown parameter computes 0; unknown operator evaluates false.
	// Neither may panic: rule sets arrive from shared URLs.
	e := newTestEngine(
		CategorySpec{ID: "bogus-param", Rules: []RuleSpec{
			{Parameter: "no_such_param", Operator: climate.OpEqual, Value: scalar(0)},
		}},
		CategorySpec{ID: "bogus-op", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: "between", Value: scalar(0)},
		}},
	)

	m := e.Classify(tminProps(5))
	// Unknown parameter yields 0, so == 0 matches on the first category.
	require.True(t, m.OK)
	assert.Equal(t, "bogus-param", m.CategoryID)

	require.True(t, e.RemoveCategory("bogus-param"))
	assert.False(t, e.Classify(tminProps(5)).OK)
}

func tminFeature(id string, tmin float64) *feature.Feature {
	f := feature.New(id)
	f.Properties[climate.PropMinTemp] = tmin
	f.Properties[climate.PropLatitude] = 40.0
	f.Properties["region"] = "test"
	return f
}

func TestClassifyAll(t *testing.T) {
	e := newTestEngine(
		CategorySpec{ID: "tropical", Name: "Tropical", Color: "#d62728", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(18)},
		}},
		CategorySpec{ID: "cold", Name: "Cold", Color: "#1f77b4", Rules: []RuleSpec{
			{Parameter: climate.ParamTmin, Operator: climate.OpLess, Value: scalar(0)},
		}},
	)

	features := []*feature.Feature{
		tminFeature("f1", 20),
		tminFeature("f2", -5),
		tminFeature("f3", 10),
	}

	res := e.ClassifyAll(features)

	assert.Len(t, res.Classified, 2)
	assert.Len(t, res.Unclassified, 1)
	assert.Equal(t, 3, res.Stats.Total)
	assert.Equal(t, 2, res.Stats.Classified)
	assert.Equal(t, 1, res.Stats.Unclassified)
	assert.Equal(t, 1, res.Stats.ByCategory["tropical"].Count)
	assert.Equal(t, 1, res.Stats.ByCategory["cold"].Count)

	t.Run("classified feature properties", func(t *testing.T) {
		f := features[0]
		assert.Equal(t, "tropical", f.Properties[PropClimateType])
		assert.Equal(t, "Tropical", f.Properties[PropClimateName])
		assert.Equal(t, "#d62728", f.Properties[PropClimateColor])
		assert.Equal(t, true, f.Properties[PropClassified])
	})

	t.Run("unclassified feature properties", func(t *testing.T) {
		f := features[2]
		assert.Nil(t, f.Properties[PropClimateType])
		assert.Equal(t, UnclassifiedName, f.Properties[PropClimateName])
		assert.Equal(t, UnclassifiedColor, f.Properties[PropClimateColor])
		assert.Equal(t, false, f.Properties[PropClassified])
	})

	t.Run("pre-existing properties untouched", func(t *testing.T) {
		for _, f := range features {
			assert.Equal(t, "test", f.Properties["region"])
		}
	})

	t.Run("deterministic across repeated passes", func(t *testing.T) {
		again := e.ClassifyAll(features)
		assert.Equal(t, res.Stats, again.Stats)
	})
}

func TestClassifyAll_EmptyInput(t *testing.T) {
	res := bandEngine().ClassifyAll(nil)
	assert.Zero(t, res.Stats.Total)
	assert.Empty(t, res.Classified)
	assert.Empty(t, res.Unclassified)
	assert.Len(t, res.Stats.ByCategory, 3)
}
