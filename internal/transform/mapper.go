package transform

import (
	"fmt"

	"github.com/gyaneshwarpardhi/eventbridge/internal/path"
)

// FieldMapping copies one field from the source document to the target
// document, optionally converting it on the way.
type FieldMapping struct {
	Source       string `yaml:"source" json:"source"`
	Target       string `yaml:"target" json:"target"`
	Transform    string `yaml:"transform,omitempty" json:"transform,omitempty"`
	DefaultValue any    `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
	Required     bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Result is the outcome of applying a mapping batch. Data always holds the
// fields that succeeded, even when Success is false, so callers can inspect
// partial output.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Errors  []string       `json:"errors,omitempty"`
}

// Mapper applies ordered field mappings against a source document.
type Mapper struct {
	registry *Registry
}

// NewMapper creates a Mapper backed by the given converter registry.
func NewMapper(registry *Registry) *Mapper {
	return &Mapper{registry: registry}
}

// Apply runs every mapping in declared order. Per-mapping failures are
// accumulated; a failed mapping never stops the rest of the batch.
func (m *Mapper) Apply(source map[string]any, mappings []FieldMapping) Result {
	result := Result{Data: make(map[string]any)}

	for _, fm := range mappings {
		if err := m.applyOne(source, fm, result.Data); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Success = len(result.Errors) == 0
	return result
}

func (m *Mapper) applyOne(source map[string]any, fm FieldMapping, out map[string]any) error {
	srcPath, err := path.Parse(fm.Source)
	if err != nil {
		return fmt.Errorf("invalid source path: %v", err)
	}
	dstPath, err := path.Parse(fm.Target)
	if err != nil {
		return fmt.Errorf("invalid target path: %v", err)
	}

	value, found := srcPath.Get(source)
	if !found {
		if fm.Required {
			return fmt.Errorf("Required field missing: %s -> %s", fm.Source, fm.Target)
		}
		if fm.DefaultValue == nil {
			// Nothing to write; the target field is simply omitted.
			return nil
		}
		value = fm.DefaultValue
	}

	if fm.Transform != "" {
		fn, err := m.registry.Get(fm.Transform)
		if err != nil {
			return fmt.Errorf("%s -> %s: %v", fm.Source, fm.Target, err)
		}
		value, err = fn(value)
		if err != nil {
			return fmt.Errorf("transform %s failed for %s -> %s: %v", fm.Transform, fm.Source, fm.Target, err)
		}
	}

	if err := dstPath.Set(out, value); err != nil {
		return fmt.Errorf("%s -> %s: %v", fm.Source, fm.Target, err)
	}
	return nil
}

// ValidateMapping checks a mapping's path syntax and transform name without
// executing it. Used by the rule store at load time. All problems found are
// returned together.
func (m *Mapper) ValidateMapping(fm FieldMapping) []string {
	var errs []string
	if _, err := path.Parse(fm.Source); err != nil {
		errs = append(errs, fmt.Sprintf("source: %v", err))
	}
	if _, err := path.Parse(fm.Target); err != nil {
		errs = append(errs, fmt.Sprintf("target: %v", err))
	}
	if fm.Transform != "" && !m.registry.Has(fm.Transform) {
		errs = append(errs, fmt.Sprintf("unknown transform %q", fm.Transform))
	}
	return errs
}
