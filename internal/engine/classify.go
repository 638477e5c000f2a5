package engine

import (
	"go.uber.org/zap"

	"github.com/sells-group/climate-cli/internal/climate"
	"github.com/sells-group/climate-cli/internal/feature"
)

// UnclassifiedColor is the neutral fill for cells no category matches.
const UnclassifiedColor = "#CCCCCC"

// UnclassifiedName is the display name for cells no category matches.
const UnclassifiedName = "Unclassified"

// Classification property keys attached to features by ClassifyAll.
const (
	PropClimateType  = "climate_type"
	PropClimateName  = "climate_name"
	PropClimateColor = "climate_color"
	PropClassified   = "classified"
)

// Match is the outcome of classifying one feature. A zero Match (OK false)
// means no enabled category matched; that is a result, not an error.
type Match struct {
	CategoryID   string
	CategoryName string
	Color        string
	OK           bool
}

// CategoryCount is the per-category tally in Stats.
type CategoryCount struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Stats aggregates one ClassifyAll pass.
type Stats struct {
	Total        int                       `json:"total"`
	Classified   int                       `json:"classified"`
	Unclassified int                       `json:"unclassified"`
	ByCategory   map[string]*CategoryCount `json:"by_category"`
}

// Result partitions the input features and carries aggregate statistics.
type Result struct {
	Classified   []*feature.Feature
	Unclassified []*feature.Feature
	Stats        Stats
}

// Classify evaluates categories in ascending priority order and returns the
// first enabled category whose every rule passes. A category with no rules
// never matches. Evaluation order is total: priorities are dense and unique
// by construction, so the result is deterministic.
func (e *Engine) Classify(props climate.Properties) Match {
	for _, cat := range e.categories {
		if !cat.Enabled {
			continue
		}
		if len(cat.Rules) == 0 {
			continue
		}
		matched := true
		for i := range cat.Rules {
			if !e.ruleMatches(&cat.Rules[i], props) {
				matched = false
				break
			}
		}
		if matched {
			return Match{CategoryID: cat.ID, CategoryName: cat.Name, Color: cat.Color, OK: true}
		}
	}
	return Match{}
}

// ruleMatches evaluates one rule. A panic inside evaluation (malformed
// stored value) is recovered and treated as a failed rule so one bad rule
// cannot abort a bulk classification.
func (e *Engine) ruleMatches(r *Rule, props climate.Properties) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("rule evaluation failed",
				zap.String("rule", r.ID),
				zap.String("parameter", r.Parameter),
				zap.Any("panic", rec),
			)
			ok = false
		}
	}()
	v := climate.ComputeValue(r.Parameter, props)
	return climate.Apply(r.Operator, v, r.Value)
}

// ClassifyAll classifies every feature, attaches climate_type, climate_name,
// climate_color, and classified to each feature's properties (leaving every
// pre-existing property untouched), and tallies per-category counts. It is a
// pure function of engine state and input: the same rule set and features
// always produce the same result.
func (e *Engine) ClassifyAll(features []*feature.Feature) *Result {
	res := &Result{Stats: Stats{ByCategory: make(map[string]*CategoryCount)}}
	for _, cat := range e.categories {
		res.Stats.ByCategory[cat.ID] = &CategoryCount{Name: cat.Name, Color: cat.Color}
	}

	for _, f := range features {
		m := e.Classify(f.ClimateProperties())
		res.Stats.Total++
		if m.OK {
			f.Properties[PropClimateType] = m.CategoryID
			f.Properties[PropClimateName] = m.CategoryName
			f.Properties[PropClimateColor] = m.Color
			f.Properties[PropClassified] = true
			res.Classified = append(res.Classified, f)
			res.Stats.Classified++
			res.Stats.ByCategory[m.CategoryID].Count++
		} else {
			f.Properties[PropClimateType] = nil
			f.Properties[PropClimateName] = UnclassifiedName
			f.Properties[PropClimateColor] = UnclassifiedColor
			f.Properties[PropClassified] = false
			res.Unclassified = append(res.Unclassified, f)
			res.Stats.Unclassified++
		}
	}
	return res
}
