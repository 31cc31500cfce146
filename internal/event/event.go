package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SpecVersion is the only CloudEvents spec version this engine accepts.
const SpecVersion = "1.0"

// Event is the canonical CloudEvents 1.0 envelope for all incoming events.
// Unknown top-level attributes are preserved as vendor extensions.
type Event struct {
	SpecVersion     string         `json:"specversion"`
	ID              string         `json:"id"`
	Source          string         `json:"source"`
	Type            string         `json:"type"`
	Time            string         `json:"time,omitempty"` // RFC 3339
	DataContentType string         `json:"datacontenttype,omitempty"`
	Subject         string         `json:"subject,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	Extensions      map[string]any `json:"-"`

	ReceivedAt time.Time `json:"-"`
}

// contextAttributes are the reserved top-level keys of the envelope;
// everything else is treated as an extension attribute.
var contextAttributes = map[string]struct{}{
	"specversion":     {},
	"id":              {},
	"source":          {},
	"type":            {},
	"time":            {},
	"datacontenttype": {},
	"subject":         {},
	"data":            {},
}

// UnmarshalJSON decodes the envelope and collects unrecognized top-level
// fields into Extensions.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	type alias Event
	var ev alias
	if err := json.Unmarshal(b, &ev); err != nil {
		return err
	}
	*e = Event(ev)

	for k, v := range raw {
		if _, reserved := contextAttributes[k]; reserved {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("extension %q: %w", k, err)
		}
		if e.Extensions == nil {
			e.Extensions = make(map[string]any)
		}
		e.Extensions[k] = val
	}
	return nil
}

// MarshalJSON emits the envelope with extension attributes flattened back
// to the top level.
func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Event
	b, err := json.Marshal((*alias)(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extensions) == 0 {
		return b, nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	for k, v := range e.Extensions {
		if _, reserved := contextAttributes[k]; !reserved {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Validate checks the envelope's required attributes. The routing and
// transformation layers assume a validated event, so this runs at the edge.
func (e *Event) Validate() error {
	var missing []string
	if e.SpecVersion == "" {
		missing = append(missing, "specversion")
	}
	if e.Type == "" {
		missing = append(missing, "type")
	}
	if e.Source == "" {
		missing = append(missing, "source")
	}
	if e.ID == "" {
		missing = append(missing, "id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("event missing required attributes: %s", strings.Join(missing, ", "))
	}
	if e.SpecVersion != SpecVersion {
		return fmt.Errorf("unsupported specversion %q (want %q)", e.SpecVersion, SpecVersion)
	}
	if e.Time != "" {
		if _, err := time.Parse(time.RFC3339, e.Time); err != nil {
			return fmt.Errorf("invalid time attribute %q: %w", e.Time, err)
		}
	}
	return nil
}

// Document flattens the event into a plain JSON-like tree for path-based
// field extraction. Envelope attributes and extensions appear at the top
// level; the payload stays under "data".
func (e *Event) Document() map[string]any {
	doc := map[string]any{
		"specversion": e.SpecVersion,
		"id":          e.ID,
		"source":      e.Source,
		"type":        e.Type,
	}
	if e.Time != "" {
		doc["time"] = e.Time
	}
	if e.DataContentType != "" {
		doc["datacontenttype"] = e.DataContentType
	}
	if e.Subject != "" {
		doc["subject"] = e.Subject
	}
	if e.Data != nil {
		doc["data"] = e.Data
	}
	for k, v := range e.Extensions {
		if _, reserved := contextAttributes[k]; !reserved {
			doc[k] = v
		}
	}
	return doc
}
