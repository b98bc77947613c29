package logging

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// TransportFunc receives every record that passes a logger's level filter.
// It is called synchronously on the logging goroutine.
type TransportFunc func(Record)

// TransportKind tells whether a logger writes to the process-wide sink or to
// a caller-supplied function.
type TransportKind int

const (
	TransportGlobal TransportKind = iota
	TransportCustom
)

func (k TransportKind) String() string {
	if k == TransportCustom {
		return "custom"
	}
	return "global"
}

// transportState is the single transport slot of a Logger. It is replaced
// wholesale, never mutated, so a swap is one atomic store.
type transportState struct {
	kind   TransportKind
	fn     TransportFunc
	silent bool
}

// encodePool reuses buffers for JSON encoding of records.
var encodePool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// SinkTransport encodes each record as one JSON line and writes it to w in a
// single Write call. A failed write is reported on fallback together with
// the encoded record; it never reaches the caller.
func SinkTransport(w io.Writer, fallback *zerolog.Logger) TransportFunc {
	if fallback == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback = &l
	}
	return func(rec Record) {
		buf := encodePool.Get().(*bytes.Buffer)
		buf.Reset()
		defer encodePool.Put(buf)

		zl := zerolog.New(buf)
		encodeRecord(&zl, rec)

		if _, err := w.Write(buf.Bytes()); err != nil {
			fallback.Error().
				Err(err).
				Str("channel", rec.Channel).
				RawJSON("record", bytes.TrimSpace(buf.Bytes())).
				Msg("log write failed, record dropped")
		}
	}
}
