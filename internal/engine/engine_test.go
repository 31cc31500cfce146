package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
	"github.com/gyaneshwarpardhi/eventbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/eventbridge/internal/routing"
	"github.com/gyaneshwarpardhi/eventbridge/internal/rules"
	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

func testEngine(t *testing.T, fallback string) *Engine {
	t.Helper()

	table := routing.NewTable()
	require.NoError(t, table.SetConfig(&config.RoutingConfig{
		Metadata: &config.Metadata{Version: "1.0"},
		Settings: &config.Settings{FallbackBehavior: fallback, ReloadIntervalMs: 30000},
		Routes: []config.Route{
			{
				Name: "patient", Enabled: true,
				Source: "smile.health-service", Type: "health.patient.*", Priority: 5,
				Destination: &config.Destination{Type: config.DestinationHTTP, Endpoint: "http://emr/ingest"},
			},
		},
	}))

	dir := t.TempDir()
	ruleDoc := `
name: patient-to-emr
eventType: health.patient.registered
enabled: true
mappings:
  - source: $.data.name
    target: $.fullName
    transform: toUpperCase
  - source: $.data.mrn
    target: $.recordNumber
    required: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patient.yaml"), []byte(ruleDoc), 0o644))

	mapper := transform.NewMapper(transform.NewRegistry())
	store := rules.NewStore(dir, time.Minute, mapper)
	require.True(t, store.LoadRules().Success)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := New(ctx, table, store, mapper, Options{Workers: 2, QueueDepth: 16})
	t.Cleanup(eng.Shutdown)
	return eng
}

func registeredEvent(data map[string]any) *event.Event {
	return &event.Event{
		SpecVersion: event.SpecVersion,
		ID:          "evt-1",
		Source:      "smile.health-service",
		Type:        "health.patient.registered",
		Data:        data,
	}
}

func TestProcessSync_RoutedAndTransformed(t *testing.T) {
	eng := testEngine(t, config.FallbackRouteToQueue)

	res, err := eng.ProcessSync(context.Background(), registeredEvent(map[string]any{
		"name": "john",
		"mrn":  "12345",
	}))
	require.NoError(t, err)

	assert.Equal(t, string(routing.OutcomeRouted), res.Outcome)
	assert.Equal(t, "patient", res.Route)
	require.NotNil(t, res.Destination)
	assert.Equal(t, "http://emr/ingest", res.Destination.Endpoint)
	assert.Equal(t, "patient-to-emr", res.Rule)
	assert.Empty(t, res.MappingErrors)
	assert.Equal(t, "JOHN", res.Output["fullName"])
	assert.Equal(t, "12345", res.Output["recordNumber"])
}

func TestProcessSync_PartialMappingSurfacesErrors(t *testing.T) {
	eng := testEngine(t, config.FallbackRouteToQueue)

	res, err := eng.ProcessSync(context.Background(), registeredEvent(map[string]any{
		"name": "john", // mrn missing but required
	}))
	require.NoError(t, err)

	assert.Equal(t, string(routing.OutcomeRouted), res.Outcome)
	require.Len(t, res.MappingErrors, 1)
	assert.Contains(t, res.MappingErrors[0], "Required field missing")
	// Partial output stays visible for diagnostics.
	assert.Equal(t, "JOHN", res.Output["fullName"])
}

func TestProcessSync_FallbackQueue(t *testing.T) {
	eng := testEngine(t, config.FallbackRouteToQueue)

	res, err := eng.ProcessSync(context.Background(), &event.Event{
		SpecVersion: event.SpecVersion, ID: "evt-2", Source: "other", Type: "billing.invoice.created",
	})
	require.NoError(t, err)

	assert.Equal(t, string(routing.OutcomeFallback), res.Outcome)
	require.NotNil(t, res.Destination)
	assert.Equal(t, routing.FallbackQueue, res.Destination.Queue)
	assert.Empty(t, res.Rule, "no rule matches this event type")
}

func TestProcessSync_Drop(t *testing.T) {
	eng := testEngine(t, config.FallbackDrop)

	res, err := eng.ProcessSync(context.Background(), &event.Event{
		SpecVersion: event.SpecVersion, ID: "evt-3", Source: "other", Type: "x",
	})
	require.NoError(t, err)

	assert.Equal(t, string(routing.OutcomeDropped), res.Outcome)
	assert.Nil(t, res.Destination)
	assert.Empty(t, res.Error)
}

func TestProcessSync_ErrorBehavior(t *testing.T) {
	eng := testEngine(t, config.FallbackError)

	res, err := eng.ProcessSync(context.Background(), &event.Event{
		SpecVersion: event.SpecVersion, ID: "evt-4", Source: "other", Type: "x",
	})
	require.NoError(t, err, "routing failure is reported in the result, not as a transport error")

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.NotEmpty(t, res.Error)
}

func TestRuleCoverageMetrics(t *testing.T) {
	eng := testEngine(t, config.FallbackRouteToQueue)

	matchedBefore := testutil.ToFloat64(metrics.RulesMatched)
	unmatchedBefore := testutil.ToFloat64(metrics.RulesUnmatched)

	_, err := eng.ProcessSync(context.Background(), registeredEvent(map[string]any{
		"name": "a", "mrn": "1",
	}))
	require.NoError(t, err)
	_, err = eng.ProcessSync(context.Background(), &event.Event{
		SpecVersion: event.SpecVersion, ID: "evt-m", Source: "other", Type: "billing.invoice.created",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RulesMatched)-matchedBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RulesUnmatched)-unmatchedBefore)
}

func TestProcessAsync(t *testing.T) {
	eng := testEngine(t, config.FallbackDrop)

	ok := eng.ProcessAsync(registeredEvent(map[string]any{"name": "a", "mrn": "1"}))
	assert.True(t, ok)
	assert.LessOrEqual(t, eng.QueueUtilization(), 1.0)
}
