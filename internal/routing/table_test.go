package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/event"
)

func testConfig(fallback string, routes ...config.Route) *config.RoutingConfig {
	return &config.RoutingConfig{
		Metadata: &config.Metadata{Version: "1.0"},
		Settings: &config.Settings{FallbackBehavior: fallback, ReloadIntervalMs: 30000},
		Routes:   routes,
	}
}

func httpRoute(name, source, typ string, priority int) config.Route {
	return config.Route{
		Name: name, Enabled: true, Source: source, Type: typ, Priority: priority,
		Destination: &config.Destination{Type: config.DestinationHTTP, Endpoint: "http://dest/" + name},
	}
}

func queueRoute(name, source, typ string, priority int) config.Route {
	return config.Route{
		Name: name, Enabled: true, Source: source, Type: typ, Priority: priority,
		Strategy:    config.StrategyFallback,
		Destination: &config.Destination{Type: config.DestinationQueue, Queue: "q." + name},
	}
}

func ev(source, typ string) *event.Event {
	return &event.Event{SpecVersion: event.SpecVersion, ID: "e1", Source: source, Type: typ}
}

func TestResolve_PriorityAndPatterns(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackRouteToQueue,
		httpRoute("patient", "smile.health-service", "health.patient.*", 5),
		queueRoute("catch-all", "*", "*", 0),
	)))

	d, err := table.Resolve(ev("smile.health-service", "health.patient.registered"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRouted, d.Outcome)
	require.NotNil(t, d.Route)
	assert.Equal(t, "patient", d.Route.Name)
	assert.Equal(t, "http://dest/patient", d.Destination.Endpoint)

	// Prefix pattern requires one more segment: the bare prefix falls to
	// the catch-all.
	d, err = table.Resolve(ev("smile.health-service", "health.patient"))
	require.NoError(t, err)
	assert.Equal(t, "catch-all", d.Route.Name)

	d, err = table.Resolve(ev("other", "x"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRouted, d.Outcome)
	assert.Equal(t, "catch-all", d.Route.Name)
}

func TestResolve_HighestPriorityWins(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop,
		httpRoute("low", "*", "*", 1),
		httpRoute("high", "*", "*", 9),
		httpRoute("mid", "*", "*", 5),
	)))

	d, err := table.Resolve(ev("s", "t"))
	require.NoError(t, err)
	assert.Equal(t, "high", d.Route.Name)
}

func TestResolve_TieBreaksByDeclarationOrder(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop,
		httpRoute("first", "*", "*", 5),
		httpRoute("second", "*", "*", 5),
	)))

	// Deterministic across repeated calls.
	for i := 0; i < 10; i++ {
		d, err := table.Resolve(ev("s", "t"))
		require.NoError(t, err)
		assert.Equal(t, "first", d.Route.Name)
	}
}

func TestResolve_DisabledRoutesIgnored(t *testing.T) {
	disabled := httpRoute("off", "*", "*", 9)
	disabled.Enabled = false
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop,
		disabled,
		httpRoute("on", "*", "*", 1),
	)))

	d, err := table.Resolve(ev("s", "t"))
	require.NoError(t, err)
	assert.Equal(t, "on", d.Route.Name)
}

func TestResolve_FallbackBehaviors(t *testing.T) {
	noMatch := httpRoute("narrow", "only.this", "only.that", 5)

	t.Run("route-to-fallback-queue", func(t *testing.T) {
		table := NewTable()
		require.NoError(t, table.SetConfig(testConfig(config.FallbackRouteToQueue, noMatch)))
		d, err := table.Resolve(ev("s", "t"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeFallback, d.Outcome)
		assert.Nil(t, d.Route)
		require.NotNil(t, d.Destination)
		assert.Equal(t, config.DestinationQueue, d.Destination.Type)
		assert.Equal(t, FallbackQueue, d.Destination.Queue)
	})

	t.Run("drop is not an error", func(t *testing.T) {
		table := NewTable()
		require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop, noMatch)))
		d, err := table.Resolve(ev("s", "t"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDropped, d.Outcome)
		assert.Nil(t, d.Destination)
	})

	t.Run("error propagates", func(t *testing.T) {
		table := NewTable()
		require.NoError(t, table.SetConfig(testConfig(config.FallbackError, noMatch)))
		_, err := table.Resolve(ev("s", "t"))
		assert.ErrorIs(t, err, ErrNoRouteMatched)
	})
}

func TestAccessorsBeforeLoad(t *testing.T) {
	table := NewTable()

	_, err := table.Resolve(ev("s", "t"))
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = table.Routes(false)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = table.Settings()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = table.Metadata()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestRoutes_EnabledFilter(t *testing.T) {
	disabled := httpRoute("off", "*", "*", 2)
	disabled.Enabled = false
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop,
		httpRoute("a", "*", "*", 1),
		disabled,
	)))

	all, err := table.Routes(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := table.Routes(true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "a", enabled[0].Name)
}

func TestLoad_RawDocument(t *testing.T) {
	table := NewTable()
	doc := []byte(`
metadata: {version: "1.0"}
settings: {fallbackBehavior: drop}
routes:
  - name: r1
    enabled: true
    source: "*"
    type: "*"
    priority: 3
    destination: {type: queue, queue: q1}
`)
	cfg, errs := table.Load(doc)
	require.Empty(t, errs)
	assert.Len(t, cfg.Routes, 1)

	d, err := table.Resolve(ev("s", "t"))
	require.NoError(t, err)
	assert.Equal(t, "r1", d.Route.Name)
}

func TestLoad_InvalidKeepsPreviousTable(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.SetConfig(testConfig(config.FallbackDrop, httpRoute("keep", "*", "*", 1))))

	_, errs := table.Load([]byte(`
metadata: {version: "1.0"}
settings: {fallbackBehavior: drop}
routes:
  - name: dup
    enabled: true
    source: "*"
    type: "*"
    priority: 99
    destination: {type: http}
`))
	require.NotEmpty(t, errs)

	// Old snapshot still serves.
	d, err := table.Resolve(ev("s", "t"))
	require.NoError(t, err)
	assert.Equal(t, "keep", d.Route.Name)
}

func TestSetConfig_RejectsInvalid(t *testing.T) {
	table := NewTable()
	bad := testConfig(config.FallbackDrop, httpRoute("r", "*", "*", 11))
	assert.Error(t, table.SetConfig(bad))
	_, err := table.Settings()
	assert.ErrorIs(t, err, ErrNotLoaded)
}
