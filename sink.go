package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
)

// SinkOptions configures a RotatingSink.
type SinkOptions struct {
	Dir     string
	Channel string

	// MaxSize is the byte threshold; 0 disables size-based rotation.
	MaxSize int64
	// Interval is the time threshold; 0 disables time-based rotation.
	Interval time.Duration

	Compression Compression

	// Fallback receives rotation and compression failures. Defaults to a
	// JSON logger on stderr.
	Fallback *zerolog.Logger
	Metrics  *Metrics
	Now      func() time.Time
}

// RotatingSink appends records to "{Dir}/{Channel}.log" and retires that file
// under a FilenameGenerator name once MaxSize bytes have been written or
// Interval has elapsed since the last rotation. Retired files are compressed
// in the background. It is safe for concurrent use.
type RotatingSink struct {
	mu sync.Mutex

	dir         string
	channel     string
	maxSize     int64
	interval    time.Duration
	compression Compression
	names       FilenameGenerator
	fallback    *zerolog.Logger
	metrics     *Metrics
	now         func() time.Time

	file      *os.File
	written   int64
	boundary  time.Time
	lastStamp string
	index     int
	rotations int
	closed    bool

	compressing sync.WaitGroup
}

// NewRotatingSink creates Dir if needed and opens the live file for append.
// Bytes already in an existing live file count towards MaxSize.
func NewRotatingSink(opts SinkOptions) (*RotatingSink, error) {
	const op errors.Op = "logging.NewRotatingSink"
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fallback == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		opts.Fallback = &l
	}
	if opts.Compression == emptyString {
		opts.Compression = CompressNone
	}
	s := &RotatingSink{
		dir:         opts.Dir,
		channel:     opts.Channel,
		maxSize:     opts.MaxSize,
		interval:    opts.Interval,
		compression: opts.Compression,
		names:       NewFilenameGenerator(opts.Channel),
		fallback:    opts.Fallback,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
	if s.channel == emptyString {
		s.channel = defaultChannel
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.New(op).Err(err).Msgf("failed to create log directory %s: %s", s.dir, err)
	}
	if err := s.openLive(s.now()); err != nil {
		return nil, err
	}
	return s, nil
}

// openLive opens the live file and resets rotation state. The caller must
// hold the mutex (or own the sink exclusively).
func (s *RotatingSink) openLive(now time.Time) error {
	const op errors.Op = "logging.RotatingSink.openLive"
	f, err := os.OpenFile(s.LivePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.New(op).Err(err).Msgf("failed to open log file: %s", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errors.New(op).Err(err).Msgf("failed to stat log file: %s", err)
	}
	s.file = f
	s.written = info.Size()
	s.boundary = now
	return nil
}

// Write appends p to the live file, rotating first if a threshold has been
// crossed. A record separator is added when p does not end with one. When
// rotation fails the record still goes to the current file.
func (s *RotatingSink) Write(p []byte) (int, error) {
	const op errors.Op = "logging.RotatingSink.Write"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.New(op).Msgf("%s: %s", s.channel, errMsgSinkClosed)
	}

	now := s.now()
	if s.shouldRotate(now) {
		if err := s.rotate(now); err != nil {
			s.fallback.Error().Err(err).Str("channel", s.channel).Msg("log rotation failed")
		}
	}
	if s.file == nil {
		if err := s.openLive(now); err != nil {
			s.metrics.writeFailed(s.channel)
			return 0, err
		}
	}

	buf := p
	if len(p) == 0 || p[len(p)-1] != '\n' {
		buf = make([]byte, 0, len(p)+1)
		buf = append(buf, p...)
		buf = append(buf, '\n')
	}

	n, err := s.file.Write(buf)
	s.written += int64(n)
	s.metrics.wrote(s.channel, n)
	if err != nil {
		s.metrics.writeFailed(s.channel)
		return min(n, len(p)), err
	}
	return len(p), nil
}

// shouldRotate reports whether a threshold was crossed. An empty file is
// never retired; its time boundary is moved forward instead.
func (s *RotatingSink) shouldRotate(now time.Time) bool {
	sizeHit := s.maxSize > 0 && s.written >= s.maxSize
	timeHit := s.interval > 0 && now.Sub(s.boundary) >= s.interval
	if s.written == 0 {
		if timeHit {
			s.boundary = now
		}
		return false
	}
	return sizeHit || timeHit
}

// rotate retires the live file. The caller must hold the mutex.
func (s *RotatingSink) rotate(now time.Time) error {
	const op errors.Op = "logging.RotatingSink.rotate"
	if err := s.file.Sync(); err != nil {
		return errors.New(op).Err(err).Msgf("failed to sync log file: %s", err)
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return errors.New(op).Err(err).Msgf("failed to close log file: %s", err)
	}

	retired := filepath.Join(s.dir, s.nextName(now))
	if err := os.Rename(s.LivePath(), retired); err != nil {
		if openErr := s.openLive(now); openErr != nil {
			return errors.New(op).Err(openErr).Msgf("failed to rename log file and reopen: %s", openErr)
		}
		return errors.New(op).Err(err).Msgf("failed to rename log file: %s", err)
	}

	if s.compression != CompressNone {
		s.compressing.Add(1)
		go func(path string) {
			defer s.compressing.Done()
			if err := compressFile(path, s.compression); err != nil {
				s.metrics.compressFailed(s.channel)
				s.fallback.Warn().Err(err).Str("channel", s.channel).Str("file", path).Msg("log compression failed")
			}
		}(retired)
	}

	s.rotations++
	s.metrics.rotated(s.channel)
	return s.openLive(now)
}

// nextName picks the retired name for now. The index restarts at 1 for each
// new second and skips names already present on disk, compressed or not.
func (s *RotatingSink) nextName(now time.Time) string {
	stamp := now.Format("20060102-150405")
	if stamp == s.lastStamp {
		s.index++
	} else {
		s.lastStamp = stamp
		s.index = 1
	}
	for {
		name := s.names.Generate(now, s.index)
		if !s.exists(name) {
			return name
		}
		s.index++
	}
}

func (s *RotatingSink) exists(name string) bool {
	for _, ext := range []string{emptyString, CompressGzip.Ext(), CompressZstd.Ext()} {
		if _, err := os.Stat(filepath.Join(s.dir, name+ext)); err == nil {
			return true
		}
	}
	return false
}

// LivePath is the path of the file currently receiving writes.
func (s *RotatingSink) LivePath() string {
	return filepath.Join(s.dir, s.names.Live())
}

func (s *RotatingSink) Dir() string     { return s.dir }
func (s *RotatingSink) Channel() string { return s.channel }

// Rotations returns how many times this sink has rotated.
func (s *RotatingSink) Rotations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotations
}

// Written returns the bytes written to the live file since it was opened or
// last rotated.
func (s *RotatingSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Sync flushes the live file.
func (s *RotatingSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close closes the live file. Later writes fail. Background compressions are
// not waited for; use Wait.
func (s *RotatingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Wait blocks until background compressions finish or timeout elapses.
// It reports whether they finished.
func (s *RotatingSink) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.compressing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
