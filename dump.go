package logging

import (
	"fmt"
	"reflect"
)

const (
	maxDumpDepth    = 10
	maxDumpElements = 10
)

// Dump writes the contents of v as a series of debug records: one per
// exported struct field, map entry or slice element. Cycles and nesting
// deeper than maxDumpDepth are cut short.
func (l *Logger) Dump(v any) {
	if !l.Enabled(DebugLevel) {
		return
	}
	d := dumper{logger: l, visited: make(map[uintptr]bool)}
	if !l.env.hidePosition {
		d.position = callerPosition(1)
	}
	if v == nil {
		d.line("Dump: <nil>")
		return
	}
	d.value(v, emptyString, 0)
}

type dumper struct {
	logger   *Logger
	position string
	visited  map[uintptr]bool
}

func (d *dumper) line(format string, args ...any) {
	rec := newRecord(DebugLevel, d.logger.name, d.logger.env.now(), fmt.Sprintf(format, args...), nil)
	rec.Position = d.position
	d.logger.emit(rec)
}

func (d *dumper) value(v any, prefix string, depth int) {
	if depth > maxDumpDepth {
		d.line("%s: <max depth reached>", prefix)
		return
	}
	if v == nil {
		d.line("%s: <nil>", prefix)
		return
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			d.line("%s: <nil>", prefix)
			return
		}
		if val.Kind() == reflect.Ptr {
			ptr := val.Pointer()
			if d.visited[ptr] {
				d.line("%s: <circular reference>", prefix)
				return
			}
			d.visited[ptr] = true
		}
		val = val.Elem()
	}
	typ := val.Type()

	switch val.Kind() {
	case reflect.Struct:
		if prefix == emptyString {
			d.line("Struct: %s", typ.Name())
		} else {
			d.line("%s: %s {", prefix, typ.Name())
		}
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if prefix != emptyString {
				name = prefix + "." + field.Name
			}
			d.value(val.Field(i).Interface(), name, depth+1)
		}
		if prefix != emptyString {
			d.line("%s: }", prefix)
		}

	case reflect.Map:
		d.line("%s: map[%s]%s (len: %d) {", prefix, typ.Key(), typ.Elem(), val.Len())
		iter := val.MapRange()
		for iter.Next() {
			d.value(iter.Value().Interface(), fmt.Sprintf("%s[%v]", prefix, iter.Key().Interface()), depth+1)
		}
		d.line("%s: }", prefix)

	case reflect.Slice, reflect.Array:
		d.line("%s: %s (len: %d) {", prefix, typ, val.Len())
		for i := 0; i < val.Len() && i < maxDumpElements; i++ {
			d.value(val.Index(i).Interface(), fmt.Sprintf("%s[%d]", prefix, i), depth+1)
		}
		if val.Len() > maxDumpElements {
			d.line("%s: ... (%d more elements)", prefix, val.Len()-maxDumpElements)
		}
		d.line("%s: }", prefix)

	default:
		d.line("%s: %v", prefix, val.Interface())
	}
}
