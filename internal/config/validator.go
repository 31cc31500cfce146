package config

import (
	"fmt"
	"strings"
)

var validFallbacks = map[string]struct{}{
	FallbackRouteToQueue: {},
	FallbackDrop:         {},
	FallbackError:        {},
}

var validStrategies = map[string]struct{}{
	"":               {}, // strategy is optional
	StrategySource:   {},
	StrategyType:     {},
	StrategyPriority: {},
	StrategyFallback: {},
}

// Validate checks the config against the routing invariants and returns
// every violation found, not just the first. An empty result means the
// config is valid.
func Validate(cfg *RoutingConfig) []string {
	var errs []string

	if cfg == nil {
		return []string{"config: document is empty"}
	}
	if cfg.Metadata == nil {
		errs = append(errs, "config: metadata section is required")
	}
	if cfg.Settings == nil {
		errs = append(errs, "config: settings section is required")
	} else {
		if _, ok := validFallbacks[cfg.Settings.FallbackBehavior]; !ok {
			errs = append(errs, fmt.Sprintf("settings: invalid fallbackBehavior %q", cfg.Settings.FallbackBehavior))
		}
		if cfg.Settings.ReloadIntervalMs < 0 {
			errs = append(errs, "settings: reloadInterval must not be negative")
		}
	}
	if len(cfg.Routes) == 0 {
		errs = append(errs, "config: routes must contain at least one route")
	}

	names := make(map[string]int) // name → index of first declaration
	for i, rt := range cfg.Routes {
		loc := fmt.Sprintf("routes[%d]", i)
		if rt.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: name is required", loc))
		} else {
			loc = fmt.Sprintf("route %q", rt.Name)
			if first, dup := names[rt.Name]; dup {
				errs = append(errs, fmt.Sprintf("duplicate route name %q (routes[%d] and routes[%d])", rt.Name, first, i))
			} else {
				names[rt.Name] = i
			}
		}
		if rt.Priority < MinPriority || rt.Priority > MaxPriority {
			errs = append(errs, fmt.Sprintf("%s: priority %d is outside [%d,%d]", loc, rt.Priority, MinPriority, MaxPriority))
		}
		if _, ok := validStrategies[rt.Strategy]; !ok {
			errs = append(errs, fmt.Sprintf("%s: invalid strategy %q", loc, rt.Strategy))
		}
		errs = append(errs, validateDestination(loc, rt.Destination)...)
	}

	return errs
}

func validateDestination(loc string, d *Destination) []string {
	if d == nil {
		return []string{fmt.Sprintf("%s: destination is required", loc)}
	}
	switch d.Type {
	case DestinationHTTP:
		if d.Endpoint == "" {
			return []string{fmt.Sprintf("%s: http destination requires an endpoint", loc)}
		}
	case DestinationQueue:
		if d.Queue == "" {
			return []string{fmt.Sprintf("%s: queue destination requires a queue", loc)}
		}
	default:
		return []string{fmt.Sprintf("%s: invalid destination type %q", loc, d.Type)}
	}
	return nil
}

// ValidationError joins a non-empty validation result into a single error
// for callers that want one value to propagate.
func ValidationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
}
