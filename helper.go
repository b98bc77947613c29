package logging

import (
	stderrs "errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	smerrors "github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
)

const (
	channelFieldName  = "channel"
	payloadFieldName  = "payload"
	positionFieldName = "position"
)

// ParseLevel parses a level name case-insensitively.
func ParseLevel(level string) (Level, error) {
	const op smerrors.Op = "logging.ParseLevel"
	name := strings.ToLower(strings.TrimSpace(level))
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return InfoLevel, smerrors.New(op).Msgf("unknown log level %q", level)
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// The traversal prefers Station-Manager DetailedError.Cause() and then
// falls back to stdlib errors.Unwrap. It guards against excessive depth
// and repeated messages to avoid cycles.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
			chain = append(chain, dErr.Error())
			ops = append(ops, string(dErr.Op()))
			err = dErr.Cause()
			continue
		}

		msg := err.Error()
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, "")
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ")
}

// callerPosition returns "file.go:line" for the frame skip levels above its
// caller.
func callerPosition(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return emptyString
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// encodeRecord writes rec as a single zerolog event. The level field is
// written explicitly so the seven-level names survive encoding.
func encodeRecord(zl *zerolog.Logger, rec Record) {
	e := zl.Log()
	if e == nil {
		return
	}
	e.Str(zerolog.TimestampFieldName, rec.Time.Format(time.RFC3339Nano))
	e.Str(zerolog.LevelFieldName, rec.Level.String())
	e.Str(channelFieldName, rec.Channel)
	if rec.Position != emptyString {
		e.Str(positionFieldName, rec.Position)
	}
	if rec.Payload != nil {
		e.Interface(payloadFieldName, rec.Payload)
	}
	for _, f := range rec.Fields {
		appendField(e, f)
	}
	e.Msg(rec.Message)
}

func appendField(e *zerolog.Event, f Field) {
	switch v := f.Value.(type) {
	case error:
		appendError(e, f.Key, v)
	case string:
		e.Str(f.Key, v)
	case []string:
		e.Strs(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case uint:
		e.Uint(f.Key, v)
	case uint64:
		e.Uint64(f.Key, v)
	case float64:
		e.Float64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Time:
		e.Str(f.Key, v.Format(time.RFC3339Nano))
	case time.Duration:
		e.Str(f.Key, v.String())
	case fmt.Stringer:
		e.Stringer(f.Key, v)
	default:
		e.Interface(f.Key, v)
	}
}

// appendError writes the error under key plus its cause chain.
func appendError(e *zerolog.Event, key string, err error) {
	e.AnErr(key, err)
	if err == nil {
		return
	}
	chain, ops, root, rootOp := buildErrorChain(err)
	if len(chain) == 0 {
		return
	}
	e.Strs(key+"_chain", chain)
	e.Str(key+"_root", root)
	e.Str(key+"_history", joinChain(chain))
	e.Strs(key+"_ops", ops)
	if rootOp != emptyString {
		e.Str(key+"_root_op", rootOp)
	}
}
