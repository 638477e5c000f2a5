// Package climate derives scalar climatological parameters from per-cell
// monthly temperature and precipitation series and evaluates rule operators
// against them.
package climate

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Property keys for a feature's climate record. Monthly series use
// MonthTempKey/MonthPrecipKey; the remaining keys hold optional precomputed
// aggregates that take precedence over derivation from the series.
const (
	PropLatitude    = "latitude"
	PropMeanTemp    = "temp_avg"     // mean annual temperature, °C
	PropMinTemp     = "temp_min"     // coldest-month temperature, °C
	PropMaxTemp     = "temp_max"     // warmest-month temperature, °C
	PropTotalPrecip = "precip_total" // annual precipitation, mm
	PropMinPrecip   = "precip_min"   // driest-month precipitation, mm
)

// Properties is one grid cell's numeric climate record.
type Properties map[string]float64

// MonthTempKey returns the property key for month m's mean temperature (1-12).
func MonthTempKey(m int) string { return fmt.Sprintf("t%d", m) }

// MonthPrecipKey returns the property key for month m's precipitation (1-12).
func MonthPrecipKey(m int) string { return fmt.Sprintf("p%d", m) }

// Parameter ids.
const (
	ParamMAT          = "mat"
	ParamTmin         = "tmin"
	ParamTmax         = "tmax"
	ParamWarmMonths   = "warm_months"
	ParamMAP          = "map"
	ParamPdry         = "pdry"
	ParamPwet         = "pwet"
	ParamPsummer      = "psummer"
	ParamPwinter      = "pwinter"
	ParamPsdry        = "psdry"
	ParamPswet        = "pswet"
	ParamPwdry        = "pwdry"
	ParamPwwet        = "pwwet"
	ParamAridityIndex = "aridity_index"
)

// warmMonthThreshold is the temperature above which a month counts as warm.
const warmMonthThreshold = 10.0

// Parameter is one derivable climatic statistic. Range and Step describe the
// slider a UI collaborator should build; computed values may legitimately
// fall outside Range.
type Parameter struct {
	ID      string
	Name    string
	Unit    string
	Range   [2]float64
	Step    float64
	Compute func(Properties) float64
}

// parameters lists every parameter in display order.
var parameters = []Parameter{
	{ID: ParamMAT, Name: "Mean annual temperature", Unit: "°C", Range: [2]float64{-40, 40}, Step: 0.5, Compute: computeMAT},
	{ID: ParamTmin, Name: "Coldest month temperature", Unit: "°C", Range: [2]float64{-60, 40}, Step: 0.5, Compute: computeTmin},
	{ID: ParamTmax, Name: "Warmest month temperature", Unit: "°C", Range: [2]float64{-30, 50}, Step: 0.5, Compute: computeTmax},
	{ID: ParamWarmMonths, Name: "Months above 10 °C", Unit: "months", Range: [2]float64{0, 12}, Step: 1, Compute: computeWarmMonths},
	{ID: ParamMAP, Name: "Annual precipitation", Unit: "mm", Range: [2]float64{0, 8000}, Step: 10, Compute: computeMAP},
	{ID: ParamPdry, Name: "Driest month precipitation", Unit: "mm", Range: [2]float64{0, 500}, Step: 1, Compute: computePdry},
	{ID: ParamPwet, Name: "Wettest month precipitation", Unit: "mm", Range: [2]float64{0, 1500}, Step: 1, Compute: computePwet},
	{ID: ParamPsummer, Name: "Summer precipitation", Unit: "mm", Range: [2]float64{0, 5000}, Step: 10, Compute: seasonTotal(summerMonths)},
	{ID: ParamPwinter, Name: "Winter precipitation", Unit: "mm", Range: [2]float64{0, 5000}, Step: 10, Compute: seasonTotal(winterMonths)},
	{ID: ParamPsdry, Name: "Driest summer month", Unit: "mm", Range: [2]float64{0, 500}, Step: 1, Compute: seasonExtreme(summerMonths, math.Min, math.Inf(1))},
	{ID: ParamPswet, Name: "Wettest summer month", Unit: "mm", Range: [2]float64{0, 1500}, Step: 1, Compute: seasonExtreme(summerMonths, math.Max, math.Inf(-1))},
	{ID: ParamPwdry, Name: "Driest winter month", Unit: "mm", Range: [2]float64{0, 500}, Step: 1, Compute: seasonExtreme(winterMonths, math.Min, math.Inf(1))},
	{ID: ParamPwwet, Name: "Wettest winter month", Unit: "mm", Range: [2]float64{0, 1500}, Step: 1, Compute: seasonExtreme(winterMonths, math.Max, math.Inf(-1))},
	{ID: ParamAridityIndex, Name: "Aridity index", Unit: "mm/°C", Range: [2]float64{0, 300}, Step: 1, Compute: computeAridity},
}

var parameterByID = func() map[string]*Parameter {
	m := make(map[string]*Parameter, len(parameters))
	for i := range parameters {
		m[parameters[i].ID] = &parameters[i]
	}
	return m
}()

// Parameters returns all parameter definitions in display order.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameters))
	copy(out, parameters)
	return out
}

// ParameterByID returns the parameter definition for id, or nil.
func ParameterByID(id string) *Parameter {
	return parameterByID[id]
}

// ValidateParameters checks every parameter's slider metadata. It is run once
// at startup; computation itself never consults Range or Step.
func ValidateParameters() error {
	for _, p := range parameters {
		if p.Range[0] > p.Range[1] {
			return eris.Errorf("climate: parameter %s: range min %g > max %g", p.ID, p.Range[0], p.Range[1])
		}
		if p.Step <= 0 {
			return eris.Errorf("climate: parameter %s: step must be positive, got %g", p.ID, p.Step)
		}
		if p.Compute == nil {
			return eris.Errorf("climate: parameter %s: missing compute function", p.ID)
		}
	}
	return nil
}

// ComputeValue derives the named parameter from props. An unknown parameter
// id is not fatal (rule data can arrive from untrusted imports): it logs a
// warning and yields 0.
func ComputeValue(id string, props Properties) float64 {
	p := parameterByID[id]
	if p == nil {
		zap.L().Warn("unknown climate parameter", zap.String("parameter", id))
		return 0
	}
	return p.Compute(props)
}

// northernSummer holds April through September; the remaining six months are
// the northern winter. Southern-hemisphere cells swap the two windows.
var northernSummer = [6]int{4, 5, 6, 7, 8, 9}
var northernWinter = [6]int{10, 11, 12, 1, 2, 3}

// summerMonths returns the six summer months for the cell's hemisphere.
// Latitude >= 0 counts as northern.
func summerMonths(props Properties) [6]int {
	if props[PropLatitude] >= 0 {
		return northernSummer
	}
	return northernWinter
}

// winterMonths returns the six winter months for the cell's hemisphere.
func winterMonths(props Properties) [6]int {
	if props[PropLatitude] >= 0 {
		return northernWinter
	}
	return northernSummer
}

// monthlySeries collects the present values of keys t1..t12 or p1..p12.
func monthlySeries(props Properties, key func(int) string) []float64 {
	vals := make([]float64, 0, 12)
	for m := 1; m <= 12; m++ {
		if v, ok := props[key(m)]; ok {
			vals = append(vals, v)
		}
	}
	return vals
}

func computeMAT(props Properties) float64 {
	if v, ok := props[PropMeanTemp]; ok {
		return v
	}
	temps := monthlySeries(props, MonthTempKey)
	if len(temps) == 0 {
		return 0
	}
	var sum float64
	for _, t := range temps {
		sum += t
	}
	return sum / float64(len(temps))
}

func computeTmin(props Properties) float64 {
	if v, ok := props[PropMinTemp]; ok {
		return v
	}
	return seriesExtreme(monthlySeries(props, MonthTempKey), math.Min, math.Inf(1))
}

func computeTmax(props Properties) float64 {
	if v, ok := props[PropMaxTemp]; ok {
		return v
	}
	return seriesExtreme(monthlySeries(props, MonthTempKey), math.Max, math.Inf(-1))
}

func computeWarmMonths(props Properties) float64 {
	var n float64
	for m := 1; m <= 12; m++ {
		if v, ok := props[MonthTempKey(m)]; ok && v >= warmMonthThreshold {
			n++
		}
	}
	return n
}

func computeMAP(props Properties) float64 {
	if v, ok := props[PropTotalPrecip]; ok {
		return v
	}
	var sum float64
	for _, p := range monthlySeries(props, MonthPrecipKey) {
		sum += p
	}
	return sum
}

func computePdry(props Properties) float64 {
	if v, ok := props[PropMinPrecip]; ok {
		return v
	}
	return seriesExtreme(monthlySeries(props, MonthPrecipKey), math.Min, math.Inf(1))
}

func computePwet(props Properties) float64 {
	return seriesExtreme(monthlySeries(props, MonthPrecipKey), math.Max, math.Inf(-1))
}

func computeAridity(props Properties) float64 {
	return computeMAP(props) / (computeMAT(props) + 10)
}

// seasonTotal sums precipitation over a hemisphere-dependent 6-month window.
func seasonTotal(window func(Properties) [6]int) func(Properties) float64 {
	return func(props Properties) float64 {
		var sum float64
		for _, m := range window(props) {
			sum += props[MonthPrecipKey(m)]
		}
		return sum
	}
}

// seasonExtreme picks the min or max precipitation within a window.
func seasonExtreme(window func(Properties) [6]int, pick func(float64, float64) float64, seed float64) func(Properties) float64 {
	return func(props Properties) float64 {
		best := seed
		found := false
		for _, m := range window(props) {
			if v, ok := props[MonthPrecipKey(m)]; ok {
				best = pick(best, v)
				found = true
			}
		}
		if !found {
			return 0
		}
		return best
	}
}

func seriesExtreme(vals []float64, pick func(float64, float64) float64, seed float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	best := seed
	for _, v := range vals {
		best = pick(best, v)
	}
	return best
}
