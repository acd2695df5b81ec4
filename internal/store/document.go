package store

import "time"

// ID returns the document's identifier, the final path segment.
func (d *Document) ID() string {
	return DocumentID(d.Path)
}

// String returns the named field as a string, or "" when absent or of
// another type.
func (d *Document) String(field string) string {
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}

// Int returns the named field as an int64. Drivers round-trip numeric fields
// through JSON, so float64 is accepted alongside the integer types.
func (d *Document) Int(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Time returns the named timestamp field. Timestamps are stored as
// RFC3339Nano strings; a zero time is returned when the field is absent or
// unparseable.
func (d *Document) Time(field string) time.Time {
	switch v := d.Fields[field].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Strings returns the named field as a string slice. JSON round-trips turn
// slices into []any, so both representations are accepted.
func (d *Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// StringMap returns the named field as a string-to-string map.
func (d *Document) StringMap(field string) map[string]string {
	switch v := d.Fields[field].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, e := range v {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a shallow copy of the document with its own fields map, so
// callers can mutate the result without aliasing driver state.
func (d *Document) Clone() *Document {
	fields := make(Fields, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return &Document{Path: d.Path, Fields: fields}
}
