package routing

import "errors"

var (
	// ErrNotLoaded is returned by accessors called before a config has
	// been loaded or set.
	ErrNotLoaded = errors.New("routing configuration not loaded")

	// ErrNoRouteMatched is returned by Resolve when no route matches and
	// the fallback behavior is "error".
	ErrNoRouteMatched = errors.New("no route matched event")
)
