package logging

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Format is the console rendering of records.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatHidden Format = "hidden"
)

// settings is the process-wide state shared by every Logger created from the
// same Service. It never changes after Initialize.
type settings struct {
	format       Format
	hidePosition bool
	minLevel     Level
	consoles     map[Format]*zerolog.Logger
	global       TransportFunc
	fallback     *zerolog.Logger
	now          func() time.Time
}

// disabledSettings backs loggers created from an uninitialized Service:
// nothing is printed and the global transport drops records.
var disabledSettings = &settings{
	format:   FormatHidden,
	minLevel: InfoLevel,
	now:      time.Now,
}

// Logger is a named channel with a level filter, a console format and exactly
// one transport. Transport swaps are atomic; a Logger is safe for concurrent
// use.
type Logger struct {
	name     string
	env      *settings
	minLevel atomic.Int32
	state    atomic.Pointer[transportState]
}

func newLogger(name string, env *settings) *Logger {
	if env == nil {
		env = disabledSettings
	}
	l := &Logger{name: name, env: env}
	l.minLevel.Store(int32(env.minLevel))
	l.state.Store(&transportState{kind: TransportGlobal, fn: env.global})
	return l
}

// Name returns the channel name, e.g. "app" or "app:db".
func (l *Logger) Name() string {
	return l.name
}

// EnableCustomTransport detaches the current transport and attaches fn. With
// silent set, console output stops while fn keeps receiving every record.
// A nil fn reverts to the global transport.
func (l *Logger) EnableCustomTransport(fn TransportFunc, silent bool) *Logger {
	if fn == nil {
		return l.EnableGlobalTransport()
	}
	l.state.Store(&transportState{kind: TransportCustom, fn: fn, silent: silent})
	return l
}

// EnableGlobalTransport reverts to the process-wide rotating file transport
// and clears silent mode.
func (l *Logger) EnableGlobalTransport() *Logger {
	l.state.Store(&transportState{kind: TransportGlobal, fn: l.env.global})
	return l
}

// SetSilent toggles silent mode. It only applies to custom transports; on the
// global transport it leaves the logger unchanged and logs a warning.
func (l *Logger) SetSilent(enable bool) *Logger {
	st := l.state.Load()
	if st.kind != TransportCustom {
		l.log(WarnLevel, warnMsgSilentNoCustom, nil)
		return l
	}
	l.state.Store(&transportState{kind: st.kind, fn: st.fn, silent: enable})
	return l
}

func (l *Logger) EnableSilent() *Logger { return l.SetSilent(true) }
func (l *Logger) DisableSilent() *Logger { return l.SetSilent(false) }

// SetMinimumLevel changes the threshold of this logger only.
func (l *Logger) SetMinimumLevel(level Level) *Logger {
	l.minLevel.Store(int32(level))
	return l
}

// SetCurrentLogLevel is SetMinimumLevel by name. Unknown names are ignored.
func (l *Logger) SetCurrentLogLevel(name string) *Logger {
	if level, err := ParseLevel(name); err == nil {
		l.SetMinimumLevel(level)
	}
	return l
}

func (l *Logger) MinimumLevel() Level {
	return Level(l.minLevel.Load())
}

func (l *Logger) IsUsingCustomTransport() bool {
	return l.state.Load().kind == TransportCustom
}

func (l *Logger) IsSilentMode() bool {
	return l.state.Load().silent
}

// TransportType is "global", "custom" or "custom-silent".
func (l *Logger) TransportType() string {
	st := l.state.Load()
	if st.kind == TransportCustom && st.silent {
		return "custom-silent"
	}
	return st.kind.String()
}

// Format returns the console format currently in effect.
func (l *Logger) Format() Format {
	st := l.state.Load()
	if st.kind == TransportCustom && st.silent {
		return FormatHidden
	}
	return l.env.format
}

// GetChildLogger returns a new logger named "{parent}:{child}". The child
// copies the parent's transport and silent flag as they are now; later
// changes to either logger are not shared.
func (l *Logger) GetChildLogger(childName string) *Logger {
	child := newLogger(l.name+":"+childName, l.env)
	if st := l.state.Load(); st.kind == TransportCustom {
		child.EnableCustomTransport(st.fn, st.silent)
	}
	return child
}

// Enabled reports whether a record at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.MinimumLevel()
}

func (l *Logger) Silly(msg any, fields ...Fields) { l.log(SillyLevel, msg, fields) }
func (l *Logger) Trace(msg any, fields ...Fields) { l.log(TraceLevel, msg, fields) }
func (l *Logger) Debug(msg any, fields ...Fields) { l.log(DebugLevel, msg, fields) }
func (l *Logger) Info(msg any, fields ...Fields) { l.log(InfoLevel, msg, fields) }
func (l *Logger) Warn(msg any, fields ...Fields) { l.log(WarnLevel, msg, fields) }
func (l *Logger) Error(msg any, fields ...Fields) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at fatal severity. It does not exit the process.
func (l *Logger) Fatal(msg any, fields ...Fields) { l.log(FatalLevel, msg, fields) }

// Log emits msg at an explicit level.
func (l *Logger) Log(level Level, msg any, fields ...Fields) { l.log(level, msg, fields) }

// Infof is a printf-style shorthand for free-form messages.
func (l *Logger) Infof(format string, args ...any) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

// LogRequest picks the level from an HTTP status: info for 2xx/3xx, warn
// for 4xx, error for 5xx and above, info for anything else.
func (l *Logger) LogRequest(statusCode int, payload any, fields ...Fields) {
	l.log(LevelForStatus(statusCode), payload, fields)
}

// LogByCondition evaluates condition for a level name and logs at that
// level. Unknown names and a nil condition fall back to info.
func (l *Logger) LogByCondition(condition func() string, msg any, fields ...Fields) {
	level := InfoLevel
	if condition != nil {
		if parsed, err := ParseLevel(strings.ToLower(condition())); err == nil {
			level = parsed
		}
	}
	l.log(level, msg, fields)
}

// log is the single entry point of the convenience methods; the caller frame
// it records is the one that called those methods.
func (l *Logger) log(level Level, msg any, fields []Fields) {
	if !l.Enabled(level) {
		return
	}
	rec := newRecord(level, l.name, l.env.now(), msg, fields)
	if !l.env.hidePosition {
		rec.Position = callerPosition(2)
	}
	l.emit(rec)
}

// emit renders rec on the console (unless hidden) and hands it to the
// active transport. A panicking custom transport is reported on the
// fallback channel instead of unwinding into the caller.
func (l *Logger) emit(rec Record) {
	st := l.state.Load()

	format := l.env.format
	if st.kind == TransportCustom && st.silent {
		format = FormatHidden
	}
	if console := l.env.consoles[format]; console != nil {
		encodeRecord(console, rec)
	}

	if st.fn == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil && l.env.fallback != nil {
			l.env.fallback.Error().
				Str("channel", rec.Channel).
				Str("panic", fmt.Sprint(p)).
				Msg("log transport panicked, record dropped")
		}
	}()
	st.fn(rec)
}
