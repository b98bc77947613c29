package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/Station-Manager/weblog/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink tags used in file names: "main.log", "request.log".
const (
	appSinkTag     = "main"
	requestSinkTag = "request"
)

// Service is the logger registry owned by the composition root. It holds the
// two rotating sinks (general and per-request), the console encoders and the
// fallback channel, and hands out Loggers that share them.
type Service struct {
	WorkingDir string
	Config     *config.Logging

	// Console receives pretty/json output. Defaults to os.Stdout.
	Console io.Writer
	// Stderr is the fallback channel. Defaults to os.Stderr.
	Stderr io.Writer
	// Registry receives the metrics. A private registry is created when nil.
	Registry *prometheus.Registry
	// Now is the clock for record timestamps and rotation. Defaults to time.Now.
	Now func() time.Time

	initOnce      sync.Once
	initErr       error
	isInitialized atomic.Bool

	env          *settings
	appSink      *RotatingSink
	requestSink  *RotatingSink
	fallbackFile *lumberjack.Logger
	fallback     zerolog.Logger
	metrics      *Metrics

	mu      sync.Mutex
	loggers map[string]*Logger
}

// Initialize validates the config, opens both sinks and prepares the console
// encoders. Calling it again returns the first result.
func (s *Service) Initialize() error {
	const op errors.Op = "logging.Service.Initialize"
	if s == nil {
		return errors.New(op).Msg(errMsgNilService)
	}
	s.initOnce.Do(func() {
		s.initErr = s.initialize(op)
		if s.initErr == nil {
			s.isInitialized.Store(true)
		}
	})
	return s.initErr
}

func (s *Service) initialize(op errors.Op) error {
	if s.Config == nil {
		return errors.New(op).Msg(errMsgNilConfig)
	}
	if s.WorkingDir == emptyString {
		return errors.New(op).Msg(errMsgWorkingDirEmpty)
	}
	s.Config.Normalize()
	if err := config.ValidateLogging(s.Config); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}

	level, err := ParseLevel(s.Config.MinLevel)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}
	compression, err := ParseCompression(s.Config.Compress)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}

	if s.Console == nil {
		s.Console = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Registry == nil {
		s.Registry = prometheus.NewRegistry()
	}

	s.fallback = s.initializeFallback()
	s.metrics = NewMetrics(s.Registry)

	appSink, err := s.initializeSink(s.Config.Dir, appSinkTag, compression)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgSinkOpenFailed)
	}
	requestSink, err := s.initializeSink(s.Config.RequestDir, requestSinkTag, compression)
	if err != nil {
		_ = appSink.Close()
		return errors.New(op).Err(err).Msg(errMsgSinkOpenFailed)
	}
	s.appSink = appSink
	s.requestSink = requestSink

	s.env = &settings{
		format:       Format(s.Config.Type),
		hidePosition: s.Config.HideLogPosition,
		minLevel:     level,
		consoles:     s.initializeConsoles(),
		global:       SinkTransport(s.appSink, &s.fallback),
		fallback:     &s.fallback,
		now:          s.Now,
	}
	s.loggers = make(map[string]*Logger)
	return nil
}

// Create returns a new Logger on the global transport with the configured
// level and format. It never fails; before Initialize the logger drops
// everything.
func (s *Service) Create(name string) *Logger {
	if s == nil || !s.isInitialized.Load() {
		return newLogger(name, nil)
	}
	return newLogger(name, s.env)
}

// Logger returns the registered logger for name, creating it on first use.
func (s *Service) Logger(name string) *Logger {
	if s == nil || !s.isInitialized.Load() {
		return newLogger(name, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loggers[name]; ok {
		return l
	}
	l := newLogger(name, s.env)
	s.loggers[name] = l
	return l
}

// RequestLogger returns the registered request logger, attached to the
// request sink.
func (s *Service) RequestLogger(silent bool) *Logger {
	return s.Logger(ChannelRequestLog).EnableCustomTransport(s.RequestTransport(), silent)
}

// GlobalTransport writes to the general sink.
func (s *Service) GlobalTransport() TransportFunc {
	if s == nil || !s.isInitialized.Load() {
		return nil
	}
	return s.env.global
}

// RequestTransport writes to the per-request sink.
func (s *Service) RequestTransport() TransportFunc {
	if s == nil || !s.isInitialized.Load() {
		return nil
	}
	return SinkTransport(s.requestSink, &s.fallback)
}

func (s *Service) AppSink() *RotatingSink     { return s.appSink }
func (s *Service) RequestSink() *RotatingSink { return s.requestSink }
func (s *Service) Metrics() *Metrics          { return s.metrics }

// Close closes both sinks and waits, up to the configured shutdown timeout,
// for retired files still being compressed. It is safe to call more than
// once.
func (s *Service) Close() error {
	if s == nil || !s.isInitialized.CompareAndSwap(true, false) {
		return nil
	}

	var errs []string
	for _, sink := range []*RotatingSink{s.appSink, s.requestSink} {
		if err := sink.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	timeout := s.Config.ShutdownTimeout()
	for _, sink := range []*RotatingSink{s.appSink, s.requestSink} {
		if !sink.Wait(timeout) {
			s.fallback.Warn().
				Str("channel", sink.Channel()).
				Dur("timeout", timeout).
				Msg("Log compression still running at shutdown")
		}
	}

	if s.fallbackFile != nil {
		if err := s.fallbackFile.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		const op errors.Op = "logging.Service.Close"
		return errors.New(op).Msg(strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) path(rel string) string {
	return filepath.Join(s.WorkingDir, rel)
}
