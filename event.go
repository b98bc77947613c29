package logging

import (
	"fmt"
	"net"
	"time"
)

// LogEvent provides a fluent interface for structured logging with typed
// fields. Nothing is emitted until Msg, Msgf or Send is called.
type LogEvent interface {
	Str(key, val string) LogEvent
	Strs(key string, vals []string) LogEvent
	Stringer(key string, val interface{ String() string }) LogEvent
	Int(key string, val int) LogEvent
	Int64(key string, val int64) LogEvent
	Uint(key string, val uint) LogEvent
	Uint64(key string, val uint64) LogEvent
	Float64(key string, val float64) LogEvent
	Bool(key string, val bool) LogEvent
	Time(key string, val time.Time) LogEvent
	Dur(key string, val time.Duration) LogEvent
	Err(err error) LogEvent
	AnErr(key string, err error) LogEvent
	IPAddr(key string, val net.IP) LogEvent
	Interface(key string, val interface{}) LogEvent
	Fields(fields Fields) LogEvent
	Msg(msg string)
	Msgf(format string, v ...interface{})
	Send()
}

// logEvent accumulates fields for one record. A nil logger makes every
// method a no-op, which is how disabled levels are represented.
type logEvent struct {
	logger *Logger
	level  Level
	fields []Field
}

func newLogEvent(l *Logger, level Level) LogEvent {
	if l == nil || !l.Enabled(level) {
		return &logEvent{}
	}
	return &logEvent{logger: l, level: level}
}

func (l *Logger) SillyWith() LogEvent { return newLogEvent(l, SillyLevel) }
func (l *Logger) TraceWith() LogEvent { return newLogEvent(l, TraceLevel) }
func (l *Logger) DebugWith() LogEvent { return newLogEvent(l, DebugLevel) }
func (l *Logger) InfoWith() LogEvent { return newLogEvent(l, InfoLevel) }
func (l *Logger) WarnWith() LogEvent { return newLogEvent(l, WarnLevel) }
func (l *Logger) ErrorWith() LogEvent { return newLogEvent(l, ErrorLevel) }
func (l *Logger) FatalWith() LogEvent { return newLogEvent(l, FatalLevel) }

func (e *logEvent) add(key string, val any) LogEvent {
	if e.logger != nil {
		e.fields = append(e.fields, Field{Key: key, Value: val})
	}
	return e
}

func (e *logEvent) Str(key, val string) LogEvent { return e.add(key, val) }
func (e *logEvent) Strs(key string, vals []string) LogEvent { return e.add(key, vals) }
func (e *logEvent) Int(key string, val int) LogEvent { return e.add(key, val) }
func (e *logEvent) Int64(key string, val int64) LogEvent { return e.add(key, val) }
func (e *logEvent) Uint(key string, val uint) LogEvent { return e.add(key, val) }
func (e *logEvent) Uint64(key string, val uint64) LogEvent { return e.add(key, val) }
func (e *logEvent) Float64(key string, val float64) LogEvent {
	return e.add(key, val)
}
func (e *logEvent) Bool(key string, val bool) LogEvent { return e.add(key, val) }
func (e *logEvent) Time(key string, val time.Time) LogEvent { return e.add(key, val) }
func (e *logEvent) Dur(key string, val time.Duration) LogEvent { return e.add(key, val) }
func (e *logEvent) AnErr(key string, err error) LogEvent { return e.add(key, err) }
func (e *logEvent) Interface(key string, val interface{}) LogEvent { return e.add(key, val) }

func (e *logEvent) Stringer(key string, val interface{ String() string }) LogEvent {
	if val == nil {
		return e.add(key, nil)
	}
	return e.add(key, val.String())
}

// Err attaches err under "error"; the encoders expand it into its cause chain.
func (e *logEvent) Err(err error) LogEvent {
	return e.add("error", err)
}

func (e *logEvent) IPAddr(key string, val net.IP) LogEvent {
	return e.add(key, val.String())
}

// Fields adds every entry of fields in key order.
func (e *logEvent) Fields(fields Fields) LogEvent {
	if e.logger == nil {
		return e
	}
	rec := newRecord(e.level, emptyString, time.Time{}, nil, []Fields{fields})
	e.fields = append(e.fields, rec.Fields...)
	return e
}

func (e *logEvent) Msg(msg string) {
	if e.logger == nil {
		return
	}
	e.send(msg, callerPosition(1))
}

func (e *logEvent) Msgf(format string, v ...interface{}) {
	if e.logger == nil {
		return
	}
	e.send(fmt.Sprintf(format, v...), callerPosition(1))
}

func (e *logEvent) Send() {
	if e.logger == nil {
		return
	}
	e.send(emptyString, callerPosition(1))
}

func (e *logEvent) send(msg, position string) {
	l := e.logger
	e.logger = nil
	rec := Record{
		Level:   e.level,
		Channel: l.name,
		Time:    l.env.now(),
		Message: msg,
		Fields:  e.fields,
	}
	if !l.env.hidePosition {
		rec.Position = position
	}
	l.emit(rec)
}
