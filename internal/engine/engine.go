// Package engine is the request-per-event collaborator that ties the
// routing table, rule store and mapping executor together. Each event is a
// synchronous in-memory computation; the worker pool only bounds how many
// run at once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
	"github.com/gyaneshwarpardhi/eventbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/eventbridge/internal/routing"
	"github.com/gyaneshwarpardhi/eventbridge/internal/rules"
	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

// Options are the engine's concurrency knobs.
type Options struct {
	Workers      int
	QueueDepth   int
	EventTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 16
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 4096
	}
	if o.EventTimeout <= 0 {
		o.EventTimeout = 5 * time.Second
	}
}

// Result is the outcome of processing a single event: the routing decision
// plus the transformed document, when a rule applied. MappingErrors are
// per-field and non-fatal; the caller decides whether partial output is
// deliverable.
type Result struct {
	EventID       string              `json:"event_id"`
	Outcome       string              `json:"outcome"`
	Route         string              `json:"route,omitempty"`
	Destination   *config.Destination `json:"destination,omitempty"`
	Rule          string              `json:"rule,omitempty"`
	Output        map[string]any      `json:"output,omitempty"`
	MappingErrors []string            `json:"mapping_errors,omitempty"`
	DurationMs    int64               `json:"duration_ms"`
	Error         string              `json:"error,omitempty"`
}

// OutcomeError marks events that failed routing (fallback behavior "error").
const OutcomeError = "error"

// Engine processes events against the loaded routing and transformation state.
type Engine struct {
	table  *routing.Table
	store  *rules.Store
	mapper *transform.Mapper
	pool   *pool
	opts   Options
}

// New creates an Engine and starts its worker pool. The pool stops when
// ctx is cancelled or Shutdown is called.
func New(ctx context.Context, table *routing.Table, store *rules.Store, mapper *transform.Mapper, opts Options) *Engine {
	opts.applyDefaults()
	e := &Engine{
		table:  table,
		store:  store,
		mapper: mapper,
		opts:   opts,
	}
	e.pool = newPool(ctx, opts.Workers, opts.QueueDepth, e.process)
	return e
}

// ProcessSync processes one event and waits for its result.
func (e *Engine) ProcessSync(ctx context.Context, ev *event.Event) (*Result, error) {
	resultC := make(chan *Result, 1)
	if !e.pool.submit(task{ev: ev, resultC: resultC}) {
		metrics.EventsDropped.Inc()
		return nil, fmt.Errorf("event queue full (capacity %d)", e.opts.QueueDepth)
	}
	metrics.EventsEnqueued.Inc()

	select {
	case res := <-resultC:
		return res, nil
	case <-time.After(e.opts.EventTimeout):
		return nil, fmt.Errorf("event processing timeout after %v", e.opts.EventTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues an event for background processing. Returns false
// when the queue is full.
func (e *Engine) ProcessAsync(ev *event.Event) bool {
	if !e.pool.submit(task{ev: ev}) {
		metrics.EventsDropped.Inc()
		return false
	}
	metrics.EventsEnqueued.Inc()
	return true
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.capacity() == 0 {
		return 0
	}
	return float64(e.pool.queued()) / float64(e.pool.capacity())
}

// Shutdown drains the worker pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.drain()
}

func (e *Engine) process(ev *event.Event) *Result {
	start := time.Now()
	res := &Result{EventID: ev.ID}

	routeMetrics := false
	if settings, err := e.table.Settings(); err == nil {
		routeMetrics = settings.EnableMetrics
	}

	decision, err := e.table.Resolve(ev)
	if err != nil {
		res.Outcome = OutcomeError
		res.Error = err.Error()
		if errors.Is(err, routing.ErrNoRouteMatched) {
			metrics.RoutingFailures.Inc()
		}
		res.DurationMs = time.Since(start).Milliseconds()
		metrics.EventsProcessed.Inc()
		return res
	}

	res.Outcome = string(decision.Outcome)
	res.Destination = decision.Destination
	switch decision.Outcome {
	case routing.OutcomeRouted:
		res.Route = decision.Route.Name
		if routeMetrics {
			metrics.EventsRouted.WithLabelValues(decision.Route.Name).Inc()
		}
	case routing.OutcomeFallback, routing.OutcomeDropped:
		if routeMetrics {
			metrics.FallbackDecisions.WithLabelValues(string(decision.Outcome)).Inc()
		}
	}

	// A dropped event is never delivered, so transformation is skipped.
	if decision.Outcome != routing.OutcomeDropped {
		e.applyRule(ev, res)
	}

	res.DurationMs = time.Since(start).Milliseconds()
	metrics.EventsProcessed.Inc()
	return res
}

func (e *Engine) applyRule(ev *event.Event, res *Result) {
	// Cache hit/miss accounting lives in the store and is served by
	// /v1/rules/cache; these counters track rule coverage per event.
	match := e.store.FindByEventType(ev.Type)
	if !match.Matched {
		metrics.RulesUnmatched.Inc()
		return
	}
	metrics.RulesMatched.Inc()
	if match.Err != nil {
		// Stale-reload failure: the rule still applied, note the condition.
		res.MappingErrors = append(res.MappingErrors, match.Err.Error())
	}

	res.Rule = match.Rule.Name
	mapped := e.mapper.Apply(ev.Document(), match.Rule.Mappings)
	res.Output = mapped.Data
	res.MappingErrors = append(res.MappingErrors, mapped.Errors...)
	if n := len(mapped.Errors); n > 0 {
		metrics.MappingErrors.Add(float64(n))
	}
}
