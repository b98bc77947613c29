package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const prettyTimeFormat = "2006-01-02 15:04:05.000"

// initializeSink opens the rotating sink for one channel family.
func (s *Service) initializeSink(rel, tag string, compression Compression) (*RotatingSink, error) {
	return NewRotatingSink(SinkOptions{
		Dir:         s.path(rel),
		Channel:     tag,
		MaxSize:     s.Config.RotationSizeBytes(),
		Interval:    s.Config.RotationEvery(),
		Compression: compression,
		Fallback:    &s.fallback,
		Metrics:     s.metrics,
		Now:         s.Now,
	})
}

// initializeFallback builds the channel for failures of the logging
// subsystem itself: stderr, plus a size-capped file when configured.
func (s *Service) initializeFallback() zerolog.Logger {
	writers := []io.Writer{s.Stderr}
	if s.Config.FallbackFile != emptyString {
		s.fallbackFile = &lumberjack.Logger{
			Filename:   s.path(s.Config.FallbackFile),
			MaxSize:    s.Config.FallbackMaxSizeMB,
			MaxBackups: s.Config.FallbackMaxBackups,
			Compress:   true,
		}
		writers = append(writers, s.fallbackFile)
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("component", "weblog").
		Logger()
}

// initializeConsoles prepares one encoder per visible format. The hidden
// format has no entry, so lookups for it yield nil.
func (s *Service) initializeConsoles() map[Format]*zerolog.Logger {
	loc := time.Local
	if s.Config.PrettyLogTimeZone == "UTC" {
		loc = time.UTC
	}

	pretty := zerolog.New(zerolog.ConsoleWriter{
		Out:              s.Console,
		NoColor:          s.Config.ConsoleNoColor,
		FormatTimestamp:  formatTimestamp(loc),
		FormatLevel:      formatLevel,
		FormatFieldValue: formatFieldValue,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			channelFieldName,
			positionFieldName,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{channelFieldName, positionFieldName},
	})
	jsonl := zerolog.New(s.Console)

	return map[Format]*zerolog.Logger{
		FormatPretty: &pretty,
		FormatJSON:   &jsonl,
	}
}

// formatTimestamp renders the RFC3339Nano time field in loc.
func formatTimestamp(loc *time.Location) zerolog.Formatter {
	return func(i interface{}) string {
		s, ok := i.(string)
		if !ok {
			return fmt.Sprint(i)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return s
		}
		return t.In(loc).Format(prettyTimeFormat)
	}
}

func formatLevel(i interface{}) string {
	s, ok := i.(string)
	if !ok {
		return "?????"
	}
	return fmt.Sprintf("%-5s", strings.ToUpper(s))
}

// formatFieldValue renders absent parts, such as a hidden position, as
// nothing instead of "<nil>".
func formatFieldValue(i interface{}) string {
	if i == nil {
		return emptyString
	}
	return fmt.Sprintf("%v", i)
}
