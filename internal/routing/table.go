// Package routing resolves events against a priority-ordered routing table.
// The table is an immutable snapshot behind an atomic pointer: reloads build
// a whole new snapshot and swap it in, so readers never observe a partially
// updated config.
package routing

import (
	"sync/atomic"

	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
)

// FallbackQueue is the sentinel queue destination used by the
// route-to-fallback-queue behavior.
const FallbackQueue = "events.fallback"

// Outcome classifies a resolution result.
type Outcome string

const (
	OutcomeRouted   Outcome = "routed"
	OutcomeFallback Outcome = "fallback"
	OutcomeDropped  Outcome = "dropped"
)

// Decision is the result of resolving an event. Route is set only when a
// configured route matched; Destination is nil for dropped events.
type Decision struct {
	Outcome     Outcome
	Route       *config.Route
	Destination *config.Destination
}

type compiledRoute struct {
	route  config.Route
	source pattern
	typ    pattern
}

// snapshot is one immutable generation of the table.
type snapshot struct {
	cfg     *config.RoutingConfig
	enabled []compiledRoute // enabled routes in declaration order
}

// Table matches events against the loaded routes.
type Table struct {
	snap atomic.Pointer[snapshot]
}

// NewTable creates an empty Table; accessors fail with ErrNotLoaded until
// Load or SetConfig succeeds.
func NewTable() *Table {
	return &Table{}
}

// Load parses and validates a raw config document, and installs it when it
// is clean. Validation errors are returned as a list; a non-empty list
// means the previous config (if any) is still in effect.
func (t *Table) Load(raw []byte) (*config.RoutingConfig, []string) {
	cfg, errs := config.Parse(raw)
	if len(errs) > 0 {
		return nil, errs
	}
	t.install(cfg)
	return cfg, nil
}

// SetConfig validates an already-parsed config and atomically replaces the
// table contents. On validation failure the previous snapshot stays intact.
func (t *Table) SetConfig(cfg *config.RoutingConfig) error {
	if errs := config.Validate(cfg); len(errs) > 0 {
		return config.ValidationError(errs)
	}
	t.install(cfg)
	return nil
}

func (t *Table) install(cfg *config.RoutingConfig) {
	snap := &snapshot{cfg: cfg}
	for _, rt := range cfg.Routes {
		if !rt.Enabled {
			continue
		}
		snap.enabled = append(snap.enabled, compiledRoute{
			route:  rt,
			source: compilePattern(rt.Source),
			typ:    compilePattern(rt.Type),
		})
	}
	t.snap.Store(snap)
}

// Resolve finds the best-matching enabled route for the event. Among
// matches the highest priority wins; ties go to the first route in
// declaration order. When nothing matches, the configured fallback
// behavior decides the outcome; only "error" produces a non-nil error.
func (t *Table) Resolve(ev *event.Event) (Decision, error) {
	snap := t.snap.Load()
	if snap == nil {
		return Decision{}, ErrNotLoaded
	}

	var best *compiledRoute
	for i := range snap.enabled {
		cr := &snap.enabled[i]
		if !cr.source.match(ev.Source) || !cr.typ.match(ev.Type) {
			continue
		}
		// Strictly-greater keeps the earliest declaration on ties.
		if best == nil || cr.route.Priority > best.route.Priority {
			best = cr
		}
	}

	if best != nil {
		rt := best.route
		return Decision{Outcome: OutcomeRouted, Route: &rt, Destination: rt.Destination}, nil
	}

	switch snap.cfg.Settings.FallbackBehavior {
	case config.FallbackDrop:
		return Decision{Outcome: OutcomeDropped}, nil
	case config.FallbackError:
		return Decision{}, ErrNoRouteMatched
	default: // route-to-fallback-queue
		return Decision{
			Outcome:     OutcomeFallback,
			Destination: &config.Destination{Type: config.DestinationQueue, Queue: FallbackQueue},
		}, nil
	}
}

// Routes returns the configured routes in declaration order, optionally
// filtered to enabled ones.
func (t *Table) Routes(onlyEnabled bool) ([]config.Route, error) {
	snap := t.snap.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	routes := make([]config.Route, 0, len(snap.cfg.Routes))
	for _, rt := range snap.cfg.Routes {
		if onlyEnabled && !rt.Enabled {
			continue
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

// Settings returns the global routing settings.
func (t *Table) Settings() (config.Settings, error) {
	snap := t.snap.Load()
	if snap == nil {
		return config.Settings{}, ErrNotLoaded
	}
	return *snap.cfg.Settings, nil
}

// Metadata returns the loaded config document's metadata.
func (t *Table) Metadata() (config.Metadata, error) {
	snap := t.snap.Load()
	if snap == nil {
		return config.Metadata{}, ErrNotLoaded
	}
	return *snap.cfg.Metadata, nil
}
