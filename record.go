package logging

import (
	"maps"
	"slices"
	"time"
)

// Fields is a set of structured attributes attached to a record.
type Fields map[string]any

// Field is one ordered key/value attribute.
type Field struct {
	Key   string
	Value any
}

// Record is one structured log entry. A Record is handed to transports by
// value and its Fields slice is never modified after construction.
type Record struct {
	Level   Level
	Channel string
	Time    time.Time

	// Message is set for string messages; Payload for structured ones.
	Message string
	Payload any

	// Position is the caller's file:line, empty when positions are hidden.
	Position string
	Fields   []Field
}

// Field returns the value stored under key.
func (r Record) Field(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// newRecord builds a record from a message of arbitrary type. Strings (and
// Stringers) become the message; anything else is kept as the payload.
func newRecord(level Level, channel string, now time.Time, msg any, fields []Fields) Record {
	rec := Record{Level: level, Channel: channel, Time: now}
	switch m := msg.(type) {
	case string:
		rec.Message = m
	case error:
		rec.Message = m.Error()
	case nil:
	default:
		rec.Payload = m
	}
	for _, fs := range fields {
		for _, k := range slices.Sorted(maps.Keys(fs)) {
			rec.Fields = append(rec.Fields, Field{Key: k, Value: fs[k]})
		}
	}
	return rec
}
