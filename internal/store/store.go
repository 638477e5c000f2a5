// Package store persists named rule sets and classification run history,
// with SQLite and PostgreSQL backends.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// RuleSet is a saved rule-set document.
type RuleSet struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Run is one recorded ClassifyAll pass.
type Run struct {
	ID           string          `json:"id"`
	RuleSetID    string          `json:"rule_set_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	Total        int             `json:"total"`
	Classified   int             `json:"classified"`
	Unclassified int             `json:"unclassified"`
	ByCategory   json.RawMessage `json:"by_category,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store is the persistence interface for rule sets and runs.
type Store interface {
	// Rule sets
	SaveRuleSet(ctx context.Context, name string, doc []byte) (*RuleSet, error)
	GetRuleSet(ctx context.Context, id string) (*RuleSet, error)
	GetRuleSetByName(ctx context.Context, name string) (*RuleSet, error)
	ListRuleSets(ctx context.Context) ([]RuleSet, error)
	DeleteRuleSet(ctx context.Context, id string) error

	// Runs
	RecordRun(ctx context.Context, run Run) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
