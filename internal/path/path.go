// Package path implements the dot/bracket path expressions used to read
// fields out of an event document and write fields into a target document.
// An expression is parsed once into a sequence of steps; the same steps
// drive both extraction and injection.
package path

import (
	"fmt"
	"strconv"
)

// Step is one hop of a parsed path: an object field, optionally followed
// by a single array index (e.g. "items[2]").
type Step struct {
	Field    string
	Index    int
	HasIndex bool
}

// Path is a compiled path expression such as "$.data.items[0].id".
type Path struct {
	raw   string
	steps []Step
}

// String returns the original expression text.
func (p Path) String() string { return p.raw }

// Steps exposes the parsed steps, mainly for diagnostics.
func (p Path) Steps() []Step { return p.steps }

// Parse compiles an expression into a Path. Expressions must begin with
// the root marker "$"; "$" alone addresses the whole document.
func Parse(expr string) (Path, error) {
	if expr == "" {
		return Path{}, fmt.Errorf("empty path expression")
	}
	if expr[0] != '$' {
		return Path{}, fmt.Errorf("path %q must begin with root marker %q", expr, "$")
	}
	if expr == "$" {
		return Path{raw: expr}, nil
	}
	if expr[1] != '.' {
		return Path{}, fmt.Errorf("path %q: expected '.' after root marker", expr)
	}

	var steps []Step
	i := 2
	for i < len(expr) {
		// Field name runs until '.', '[' or end of input.
		j := i
		for j < len(expr) && expr[j] != '.' && expr[j] != '[' {
			j++
		}
		if j == i {
			return Path{}, fmt.Errorf("path %q: empty segment at position %d", expr, i)
		}
		st := Step{Field: expr[i:j]}
		i = j

		if i < len(expr) && expr[i] == '[' {
			close := i + 1
			for close < len(expr) && expr[close] != ']' {
				close++
			}
			if close >= len(expr) {
				return Path{}, fmt.Errorf("path %q: unterminated index at position %d", expr, i)
			}
			idx, err := strconv.Atoi(expr[i+1 : close])
			if err != nil || idx < 0 {
				return Path{}, fmt.Errorf("path %q: invalid array index %q", expr, expr[i+1:close])
			}
			st.Index = idx
			st.HasIndex = true
			i = close + 1
		}
		steps = append(steps, st)

		if i < len(expr) {
			if expr[i] != '.' {
				return Path{}, fmt.Errorf("path %q: unexpected character %q at position %d", expr, expr[i], i)
			}
			i++
			if i == len(expr) {
				return Path{}, fmt.Errorf("path %q: trailing '.'", expr)
			}
		}
	}
	return Path{raw: expr, steps: steps}, nil
}

// Get extracts the value addressed by the path. The second return value
// reports whether the full path resolved; a present-but-null field counts
// as found.
func (p Path) Get(doc map[string]any) (any, bool) {
	var cur any = doc
	for _, st := range p.steps {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[st.Field]
		if !ok {
			return nil, false
		}
		if st.HasIndex {
			arr, ok := v.([]any)
			if !ok || st.Index >= len(arr) {
				return nil, false
			}
			v = arr[st.Index]
		}
		cur = v
	}
	return cur, true
}

// Set writes value at the path, creating intermediate objects and array
// slots as needed. Array slots created on the way are filled with nil up
// to the addressed index. Existing non-container values along the path are
// replaced by containers; the last writer wins.
func (p Path) Set(doc map[string]any, value any) error {
	if len(p.steps) == 0 {
		return fmt.Errorf("path %q: cannot write to document root", p.raw)
	}
	cur := doc
	for i, st := range p.steps {
		last := i == len(p.steps)-1

		if !st.HasIndex {
			if last {
				cur[st.Field] = value
				return nil
			}
			next, ok := cur[st.Field].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[st.Field] = next
			}
			cur = next
			continue
		}

		arr, _ := cur[st.Field].([]any)
		for len(arr) <= st.Index {
			arr = append(arr, nil)
		}
		cur[st.Field] = arr
		if last {
			arr[st.Index] = value
			return nil
		}
		next, ok := arr[st.Index].(map[string]any)
		if !ok {
			next = make(map[string]any)
			arr[st.Index] = next
		}
		cur = next
	}
	return nil
}
