package config

// Fallback behaviors applied when no route matches an event.
const (
	FallbackRouteToQueue = "route-to-fallback-queue"
	FallbackDrop         = "drop"
	FallbackError        = "error"
)

// Destination types.
const (
	DestinationHTTP  = "http"
	DestinationQueue = "queue"
)

// Routing strategies. Descriptive only: they document rule intent and are
// reported through the API, but never alter matching.
const (
	StrategySource   = "source"
	StrategyType     = "type"
	StrategyPriority = "priority"
	StrategyFallback = "fallback"
)

// Priority bounds for routes (inclusive).
const (
	MinPriority = 0
	MaxPriority = 10
)

// RoutingConfig is the top-level YAML structure consumed by the routing
// table. Metadata and Settings are pointers so a missing section is
// distinguishable from an empty one during validation.
type RoutingConfig struct {
	Metadata *Metadata `yaml:"metadata" json:"metadata"`
	Settings *Settings `yaml:"settings" json:"settings"`
	Routes   []Route   `yaml:"routes" json:"routes"`
}

// Metadata describes the config document itself.
type Metadata struct {
	Version     string `yaml:"version" json:"version"`
	LastUpdated string `yaml:"lastUpdated" json:"lastUpdated"`
	Description string `yaml:"description" json:"description"`
}

// Settings holds global routing behavior.
type Settings struct {
	FallbackBehavior string `yaml:"fallbackBehavior" json:"fallbackBehavior"`
	ValidateOnLoad   bool   `yaml:"validateOnLoad" json:"validateOnLoad"`
	DynamicReload    bool   `yaml:"dynamicReload" json:"dynamicReload"`
	ReloadIntervalMs int    `yaml:"reloadInterval" json:"reloadInterval"`
	EnableMetrics    bool   `yaml:"enableMetrics" json:"enableMetrics"`
}

// Route matches events by source and type pattern and names a destination.
type Route struct {
	Name        string       `yaml:"name" json:"name"`
	Enabled     bool         `yaml:"enabled" json:"enabled"`
	Source      string       `yaml:"source" json:"source"`
	Type        string       `yaml:"type" json:"type"`
	Strategy    string       `yaml:"strategy" json:"strategy"`
	Priority    int          `yaml:"priority" json:"priority"`
	Destination *Destination `yaml:"destination" json:"destination"`
}

// Destination is a tagged union: "http" requires Endpoint, "queue"
// requires Queue.
type Destination struct {
	Type      string `yaml:"type" json:"type"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Method    string `yaml:"method,omitempty" json:"method,omitempty"`
	TimeoutMs int    `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Queue     string `yaml:"queue,omitempty" json:"queue,omitempty"`
}
