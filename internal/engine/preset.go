package engine

import "github.com/sells-group/climate-cli/internal/climate"

// ExamplePreset returns a minimal three-band rule set keyed on coldest-month
// temperature. It seeds new installations and demos; real classifications
// are expected to import their own rule sets.
func ExamplePreset() []CategorySpec {
	return []CategorySpec{
		{
			ID:    "tropical",
			Name:  "Tropical",
			Color: "#d62728",
			Rules: []RuleSpec{
				{Parameter: climate.ParamTmin, Operator: climate.OpGreaterEq, Value: scalar(18)},
			},
		},
		{
			ID:    "temperate",
			Name:  "Temperate",
			Color: "#2ca02c",
			Rules: []RuleSpec{
				{Parameter: climate.ParamTmin, Operator: climate.OpInRange, Value: rangeVal(-3, 18)},
				{Parameter: climate.ParamTmin, Operator: climate.OpLess, Value: scalar(18)},
			},
		},
		{
			ID:    "cold",
			Name:  "Cold",
			Color: "#1f77b4",
			Rules: []RuleSpec{
				{Parameter: climate.ParamTmin, Operator: climate.OpLess, Value: scalar(-3)},
			},
		},
	}
}

func scalar(v float64) *climate.Value {
	val := climate.NewScalar(v)
	return &val
}

func rangeVal(low, high float64) *climate.Value {
	val := climate.NewRange(low, high)
	return &val
}
