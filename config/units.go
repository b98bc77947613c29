package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Station-Manager/errors"
)

var sizeShifts = map[string]uint{"B": 0, "K": 10, "M": 20, "G": 30}

var intervalUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseSize parses a rotation size such as "10M" or "512K" into bytes.
// Accepted units are B, K, M and G (binary multiples); the unit is required.
// Values that do not fit in an int64 are rejected.
func ParseSize(s string) (int64, error) {
	const op errors.Op = "config.ParseSize"
	num, unit, err := splitUnit(s)
	if err != nil {
		return 0, errors.New(op).Err(err).Msgf("invalid size %q: %s", s, err)
	}
	shift, ok := sizeShifts[unit]
	if !ok {
		return 0, errors.New(op).Msgf("invalid size %q: unknown unit %q", s, unit)
	}
	if num > math.MaxInt64>>shift {
		return 0, errors.New(op).Msgf("invalid size %q: out of range", s)
	}
	return num << shift, nil
}

// ParseInterval parses a rotation interval such as "1d" or "12h".
// Accepted units are s, m, h and d. Intervals longer than the largest
// time.Duration are rejected.
func ParseInterval(s string) (time.Duration, error) {
	const op errors.Op = "config.ParseInterval"
	num, unit, err := splitUnit(s)
	if err != nil {
		return 0, errors.New(op).Err(err).Msgf("invalid interval %q: %s", s, err)
	}
	d, ok := intervalUnits[unit]
	if !ok {
		return 0, errors.New(op).Msgf("invalid interval %q: unknown unit %q", s, unit)
	}
	if num > math.MaxInt64/int64(d) {
		return 0, errors.New(op).Msgf("invalid interval %q: out of range", s)
	}
	return time.Duration(num) * d, nil
}

func splitUnit(s string) (int64, string, error) {
	const op errors.Op = "config.splitUnit"
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, "", errors.New(op).Msg("expected <number><unit>")
	}
	unit := s[len(s)-1:]
	num, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, "", errors.New(op).Err(err).Msg(err.Error())
	}
	if num <= 0 {
		return 0, "", errors.New(op).Msg("must be positive")
	}
	return num, unit, nil
}
