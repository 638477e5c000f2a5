package climate

import (
	"math"

	"go.uber.org/zap"
)

// Operator ids.
const (
	OpLess       = "<"
	OpLessEq     = "<="
	OpGreater    = ">"
	OpGreaterEq  = ">="
	OpEqual      = "=="
	OpNotEqual   = "!="
	OpInRange    = "in_range"
	OpNotInRange = "not_in_range"
)

// Epsilon is the tolerance for the equality operators. Parameter values come
// out of floating-point averaging upstream, so == and != compare within
// |a-b| < Epsilon rather than bit-exact.
const Epsilon = 1e-3

// Operator is a named binary predicate over a computed parameter value and a
// rule comparand.
type Operator struct {
	ID   string
	Eval func(v float64, rv Value) bool
}

var operators = []Operator{
	{ID: OpLess, Eval: func(v float64, rv Value) bool { return v < rv.Number() }},
	{ID: OpLessEq, Eval: func(v float64, rv Value) bool { return v <= rv.Number() }},
	{ID: OpGreater, Eval: func(v float64, rv Value) bool { return v > rv.Number() }},
	{ID: OpGreaterEq, Eval: func(v float64, rv Value) bool { return v >= rv.Number() }},
	{ID: OpEqual, Eval: func(v float64, rv Value) bool { return math.Abs(v-rv.Number()) < Epsilon }},
	{ID: OpNotEqual, Eval: func(v float64, rv Value) bool { return math.Abs(v-rv.Number()) >= Epsilon }},
	{ID: OpInRange, Eval: inRange},
	{ID: OpNotInRange, Eval: func(v float64, rv Value) bool { return !inRange(v, rv) }},
}

// inRange is inclusive on both bounds.
func inRange(v float64, rv Value) bool {
	low, high := rv.Bounds()
	return v >= low && v <= high
}

var operatorByID = func() map[string]*Operator {
	m := make(map[string]*Operator, len(operators))
	for i := range operators {
		m[operators[i].ID] = &operators[i]
	}
	return m
}()

// Operators returns all operator definitions in display order.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	return out
}

// OperatorByID returns the operator definition for id, or nil.
func OperatorByID(id string) *Operator {
	return operatorByID[id]
}

// Apply evaluates the named operator. An unknown operator id is not fatal
// (rule data can arrive from untrusted imports): it logs a warning and
// evaluates false.
func Apply(id string, v float64, rv Value) bool {
	op := operatorByID[id]
	if op == nil {
		zap.L().Warn("unknown rule operator", zap.String("operator", id))
		return false
	}
	return op.Eval(v, rv)
}
