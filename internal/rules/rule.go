package rules

import (
	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

// Rule is a named set of field mappings that reshapes an event's payload
// into a destination-specific document. Rules are keyed by exact event
// type; there is no wildcarding at this layer.
type Rule struct {
	Name         string                   `yaml:"name" json:"name"`
	Description  string                   `yaml:"description,omitempty" json:"description,omitempty"`
	EventType    string                   `yaml:"eventType" json:"eventType"`
	TargetFormat string                   `yaml:"targetFormat,omitempty" json:"targetFormat,omitempty"`
	Enabled      bool                     `yaml:"enabled" json:"enabled"`
	Mappings     []transform.FieldMapping `yaml:"mappings" json:"mappings"`
	OutputSchema map[string]any           `yaml:"outputSchema,omitempty" json:"outputSchema,omitempty"`
	Destination  string                   `yaml:"destination,omitempty" json:"destination,omitempty"`
	Metadata     map[string]any           `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// LoadResult reports a bulk load: the rules that parsed and validated
// cleanly, plus every problem found. Success means zero errors.
type LoadResult struct {
	Success bool     `json:"success"`
	Rules   []*Rule  `json:"rules,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// MatchResult is the outcome of an event-type lookup.
type MatchResult struct {
	Matched bool
	Rule    *Rule
	Err     error
}

// CacheStats is an observability snapshot of the rule cache.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Reloads int64 `json:"reloads"`
}
