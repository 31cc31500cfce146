package routing

import "strings"

type patternKind int

const (
	patternAny    patternKind = iota // "*"
	patternExact                     // literal match
	patternPrefix                    // "literal.*": prefix plus exactly one more segment
)

// pattern is a compiled route matcher for event source/type attributes.
type pattern struct {
	kind    patternKind
	literal string
}

func compilePattern(s string) pattern {
	if s == "*" {
		return pattern{kind: patternAny}
	}
	if prefix, ok := strings.CutSuffix(s, ".*"); ok {
		return pattern{kind: patternPrefix, literal: prefix}
	}
	return pattern{kind: patternExact, literal: s}
}

func (p pattern) match(v string) bool {
	switch p.kind {
	case patternAny:
		return true
	case patternExact:
		return v == p.literal
	case patternPrefix:
		// "health.patient.*" matches "health.patient.registered" but not
		// "health.patient" or "health.patient.a.b".
		rest, ok := strings.CutPrefix(v, p.literal+".")
		return ok && rest != "" && !strings.Contains(rest, ".")
	}
	return false
}
