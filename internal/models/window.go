package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeWindow identifies a fixed-size time bucket: timestamp div window duration.
type TimeWindow int64

// WindowDuration is the length of every time window of a run, in milliseconds.
type WindowDuration int64

var ErrInvalidWindowDuration = errors.New("invalid window duration")

// Report directory layouts, UTC. Minute precision unless the window size does not
// divide into whole minutes, so that every window keeps a distinct directory.
const (
	windowDirLayoutMinute = "2006-01-02-15-04"
	windowDirLayoutSecond = "2006-01-02-15-04-05"
	windowDirLayoutMilli  = "2006-01-02-15-04-05.000"
)

// isoDurationRx matches the day-time subset of ISO-8601 durations, e.g. P1D, PT1H, P1DT12H30M, PT0.5S.
var isoDurationRx = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseWindowDuration accepts an ISO-8601 day-time duration (P1D, PT15M) or a Go
// duration string (24h, 15m) and returns it in milliseconds.
func ParseWindowDuration(s string) (WindowDuration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidWindowDuration)
	}

	var d time.Duration
	if strings.HasPrefix(strings.ToUpper(s), "P") {
		parsed, err := parseISODuration(strings.ToUpper(s))
		if err != nil {
			return 0, err
		}
		d = parsed
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidWindowDuration, s, err)
		}
		d = parsed
	}

	ms := d.Milliseconds()
	if ms <= 0 {
		return 0, fmt.Errorf("%w: %q must be at least 1ms", ErrInvalidWindowDuration, s)
	}
	return WindowDuration(ms), nil
}

func parseISODuration(s string) (time.Duration, error) {
	m := isoDurationRx.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("%w: %q is not an ISO-8601 day-time duration", ErrInvalidWindowDuration, s)
	}

	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidWindowDuration, s, err)
		}
		d += time.Duration(n) * unit
	}
	if m[4] != "" {
		secs, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidWindowDuration, s, err)
		}
		d += time.Duration(secs * float64(time.Second))
	}
	return d, nil
}

// WindowOf maps an epoch-millis timestamp to its window, flooring towards negative infinity.
func (d WindowDuration) WindowOf(timestampMillis int64) TimeWindow {
	size := int64(d)
	w := timestampMillis / size
	if timestampMillis%size != 0 && timestampMillis < 0 {
		w--
	}
	return TimeWindow(w)
}

// Start returns the wall-clock start of window w in UTC.
func (d WindowDuration) Start(w TimeWindow) time.Time {
	return time.UnixMilli(int64(w) * int64(d)).UTC()
}

// DirLayout returns the time layout naming the report directory of each window of size d.
func (d WindowDuration) DirLayout() string {
	switch {
	case d%60_000 == 0:
		return windowDirLayoutMinute
	case d%1_000 == 0:
		return windowDirLayoutSecond
	default:
		return windowDirLayoutMilli
	}
}

// FormatStart renders windowStart as a report directory name, YYYY-MM-DD-HH-mm for
// whole-minute windows.
func (d WindowDuration) FormatStart(windowStart time.Time) string {
	return windowStart.UTC().Format(d.DirLayout())
}
