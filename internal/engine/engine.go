// Package engine holds the category/rule model for climate classification:
// an ordered list of categories, each with an AND-combined rule set, plus the
// first-match classification algorithm and the versioned rule-set document
// format used for persistence and URL sharing.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sells-group/climate-cli/internal/climate"
)

// palette is the cyclic default color sequence for new categories.
var palette = [10]string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Rule is one parameter/operator/value test. Unit is derived from the
// parameter definition and never persisted.
type Rule struct {
	ID        string        `json:"id"`
	Parameter string        `json:"parameter"`
	Operator  string        `json:"operator"`
	Value     climate.Value `json:"value"`
	Unit      string        `json:"unit,omitempty"`
}

// Category is a named, colored classification bucket. A feature matches the
// category iff every rule passes; a category with no rules matches nothing.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`
	Rules       []Rule `json:"rules"`
}

func (c *Category) clone() *Category {
	out := *c
	out.Rules = make([]Rule, len(c.Rules))
	copy(out.Rules, c.Rules)
	return &out
}

func (c *Category) ruleIndex(ruleID string) int {
	for i := range c.Rules {
		if c.Rules[i].ID == ruleID {
			return i
		}
	}
	return -1
}

// EventType identifies a model mutation for observers.
type EventType string

const (
	EventCategoryAdded       EventType = "category-added"
	EventCategoryUpdated     EventType = "category-updated"
	EventCategoryRemoved     EventType = "category-removed"
	EventCategoriesReordered EventType = "categories-reordered"
	EventRuleAdded           EventType = "rule-added"
	EventRuleUpdated         EventType = "rule-updated"
	EventRuleRemoved         EventType = "rule-removed"
)

// Event carries the mutated entity to observers. Category is a copy for
// every event type; Rule is set for rule events only.
type Event struct {
	Type     EventType
	Category *Category
	Rule     *Rule
}

// Observer receives mutation events. Observers run synchronously on the
// mutating call.
type Observer func(Event)

// Engine owns the ordered category list. Priorities are kept dense,
// zero-based, and consistent with slice order across every mutation. The
// engine is not safe for concurrent use; callers serialize access.
type Engine struct {
	categories []*Category
	newID      func() string
	observers  []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator replaces the UUID-based id generator, letting tests supply
// deterministic ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New builds an engine from category specs: missing ids, names, colors, and
// rule fields are filled with defaults and categories are sorted by ascending
// priority before renumbering. The same path serves freshly authored and
// deserialized data.
func New(specs []CategorySpec, opts ...Option) *Engine {
	e := &Engine{newID: func() string { return uuid.New().String() }}
	for _, opt := range opts {
		opt(e)
	}

	type ranked struct {
		cat  *Category
		rank int
	}
	items := make([]ranked, 0, len(specs))
	for i, spec := range specs {
		rank := i
		if spec.Priority != nil {
			rank = *spec.Priority
		}
		items = append(items, ranked{cat: e.materialize(spec, i), rank: rank})
	}
	// Stable by construction: equal ranks keep input order.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].rank > items[j].rank; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
	for i, it := range items {
		it.cat.Priority = i
		e.categories = append(e.categories, it.cat)
	}
	return e
}

// Subscribe registers an observer for mutation events.
func (e *Engine) Subscribe(fn Observer) {
	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.observers {
		fn(ev)
	}
}

// materialize fills a CategorySpec's missing fields. index drives the default
// name and palette color.
func (e *Engine) materialize(spec CategorySpec, index int) *Category {
	cat := &Category{
		ID:          spec.ID,
		Name:        spec.Name,
		Color:       spec.Color,
		Description: spec.Description,
		Enabled:     true,
	}
	if cat.ID == "" {
		cat.ID = e.newID()
	}
	if cat.Name == "" {
		cat.Name = fmt.Sprintf("Category %d", index+1)
	}
	if cat.Color == "" {
		cat.Color = palette[index%len(palette)]
	}
	if spec.Enabled != nil {
		cat.Enabled = *spec.Enabled
	}
	cat.Rules = make([]Rule, 0, len(spec.Rules))
	for _, rs := range spec.Rules {
		cat.Rules = append(cat.Rules, e.materializeRule(rs))
	}
	return cat
}

// materializeRule fills a RuleSpec's missing fields: parameter MAT, operator
// >=, and a default value at the midpoint of the parameter's slider range.
func (e *Engine) materializeRule(spec RuleSpec) Rule {
	r := Rule{
		ID:        spec.ID,
		Parameter: spec.Parameter,
		Operator:  spec.Operator,
	}
	if r.ID == "" {
		r.ID = e.newID()
	}
	if r.Parameter == "" {
		r.Parameter = climate.ParamMAT
	}
	if r.Operator == "" {
		r.Operator = climate.OpGreaterEq
	}
	if spec.Value != nil {
		r.Value = *spec.Value
	} else if p := climate.ParameterByID(r.Parameter); p != nil {
		r.Value = climate.NewScalar((p.Range[0] + p.Range[1]) / 2)
	}
	if p := climate.ParameterByID(r.Parameter); p != nil {
		r.Unit = p.Unit
	}
	return r
}

// renumber restores the dense 0..n-1 priority invariant from slice order.
func (e *Engine) renumber() {
	for i, cat := range e.categories {
		cat.Priority = i
	}
}

func (e *Engine) find(id string) (*Category, int) {
	for i, cat := range e.categories {
		if cat.ID == id {
			return cat, i
		}
	}
	return nil, -1
}

// AddCategory appends a category with priority = current length and emits
// category-added. Defaults follow the constructor: the Nth category is named
// "Category N" and cycles the 10-color palette.
func (e *Engine) AddCategory(spec CategorySpec) *Category {
	cat := e.materialize(spec, len(e.categories))
	cat.Priority = len(e.categories)
	e.categories = append(e.categories, cat)
	e.emit(Event{Type: EventCategoryAdded, Category: cat.clone()})
	return cat
}

// CategoryPatch is a partial category update. Nil fields are left unchanged;
// id and rules are immutable through UpdateCategory.
type CategoryPatch struct {
	Name        *string
	Color       *string
	Description *string
	Enabled     *bool
}

// UpdateCategory merges patch into the category and emits category-updated.
// Returns nil if id is unknown.
func (e *Engine) UpdateCategory(id string, patch CategoryPatch) *Category {
	cat, _ := e.find(id)
	if cat == nil {
		return nil
	}
	if patch.Name != nil {
		cat.Name = *patch.Name
	}
	if patch.Color != nil {
		cat.Color = *patch.Color
	}
	if patch.Description != nil {
		cat.Description = *patch.Description
	}
	if patch.Enabled != nil {
		cat.Enabled = *patch.Enabled
	}
	e.emit(Event{Type: EventCategoryUpdated, Category: cat.clone()})
	return cat
}

// RemoveCategory deletes the category, renumbers the remainder, and emits
// category-removed. Returns false if id is unknown.
func (e *Engine) RemoveCategory(id string) bool {
	cat, i := e.find(id)
	if cat == nil {
		return false
	}
	e.categories = append(e.categories[:i], e.categories[i+1:]...)
	e.renumber()
	e.emit(Event{Type: EventCategoryRemoved, Category: cat.clone()})
	return true
}

// ReorderCategories reorders to match ids, silently dropping unknown ids.
// Categories not mentioned keep their relative order after the listed ones;
// reordering never removes data. Emits categories-reordered.
func (e *Engine) ReorderCategories(ids []string) {
	seen := make(map[string]bool, len(ids))
	ordered := make([]*Category, 0, len(e.categories))
	for _, id := range ids {
		if cat, _ := e.find(id); cat != nil && !seen[id] {
			seen[id] = true
			ordered = append(ordered, cat)
		}
	}
	for _, cat := range e.categories {
		if !seen[cat.ID] {
			ordered = append(ordered, cat)
		}
	}
	e.categories = ordered
	e.renumber()
	e.emit(Event{Type: EventCategoriesReordered})
}

// GetCategory returns the category for id, or nil.
func (e *Engine) GetCategory(id string) *Category {
	cat, _ := e.find(id)
	return cat
}

// SortedCategories returns a priority-ordered deep copy. Mutating the result
// never affects engine state.
func (e *Engine) SortedCategories() []*Category {
	out := make([]*Category, len(e.categories))
	for i, cat := range e.categories {
		out[i] = cat.clone()
	}
	return out
}

// Len returns the number of categories.
func (e *Engine) Len() int {
	return len(e.categories)
}

// AddRule appends a rule to the category and emits rule-added. Returns nil
// if the category is unknown.
func (e *Engine) AddRule(categoryID string, spec RuleSpec) *Rule {
	cat, _ := e.find(categoryID)
	if cat == nil {
		return nil
	}
	rule := e.materializeRule(spec)
	cat.Rules = append(cat.Rules, rule)
	e.emit(Event{Type: EventRuleAdded, Category: cat.clone(), Rule: &rule})
	return &cat.Rules[len(cat.Rules)-1]
}

// RulePatch is a partial rule update. Nil fields are left unchanged; unit is
// derived and recomputed whenever the parameter changes.
type RulePatch struct {
	Parameter *string
	Operator  *string
	Value     *climate.Value
}

// UpdateRule merges patch into the rule and emits rule-updated. Returns nil
// if either id is unknown.
func (e *Engine) UpdateRule(categoryID, ruleID string, patch RulePatch) *Rule {
	cat, _ := e.find(categoryID)
	if cat == nil {
		return nil
	}
	i := cat.ruleIndex(ruleID)
	if i < 0 {
		return nil
	}
	rule := &cat.Rules[i]
	if patch.Parameter != nil && *patch.Parameter != rule.Parameter {
		rule.Parameter = *patch.Parameter
		rule.Unit = ""
		if p := climate.ParameterByID(rule.Parameter); p != nil {
			rule.Unit = p.Unit
		}
	}
	if patch.Operator != nil {
		rule.Operator = *patch.Operator
	}
	if patch.Value != nil {
		rule.Value = *patch.Value
	}
	copied := *rule
	e.emit(Event{Type: EventRuleUpdated, Category: cat.clone(), Rule: &copied})
	return rule
}

// RemoveRule deletes the rule and emits rule-removed. Returns false if
// either id is unknown.
func (e *Engine) RemoveRule(categoryID, ruleID string) bool {
	cat, _ := e.find(categoryID)
	if cat == nil {
		return false
	}
	i := cat.ruleIndex(ruleID)
	if i < 0 {
		return false
	}
	removed := cat.Rules[i]
	cat.Rules = append(cat.Rules[:i], cat.Rules[i+1:]...)
	e.emit(Event{Type: EventRuleRemoved, Category: cat.clone(), Rule: &removed})
	return true
}
