package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp indicates a timestamp that is not [[HH:]MM:]SS[.mmm].
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Timestamp formats a millisecond offset as HH:MM:SS.mmm.
// Negative offsets are prefixed with "-".
func Timestamp(ms int) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, h, m, s, ms%1000)
}

// maxTimestampSeconds caps parsed timestamps well below int overflow.
const maxTimestampSeconds = 1000 * 3600

// ParseTimestamp parses [[HH:]MM:]SS[.mmm] into milliseconds.
// Only the rightmost segment may carry a fraction of 1 to 3 digits,
// read as a decimal fraction of a second ("1.5" is 1500ms).
// Segments after the leading one must be below 60.
func ParseTimestamp(s string) (int, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has too many segments", ErrInvalidTimestamp, s)
	}

	last := parts[len(parts)-1]
	fraction := 0
	if whole, frac, ok := strings.Cut(last, "."); ok {
		if len(frac) == 0 || len(frac) > 3 || !digits(frac) {
			return 0, fmt.Errorf("%w: %q has a bad millisecond part", ErrInvalidTimestamp, s)
		}
		n, _ := strconv.Atoi(frac)
		for range 3 - len(frac) {
			n *= 10
		}
		fraction = n
		parts[len(parts)-1] = whole
	}

	total := 0
	for i, p := range parts {
		if p == "" || !digits(p) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: %q segment %d out of range", ErrInvalidTimestamp, s, v)
		}
		total = total*60 + v
		if total > maxTimestampSeconds {
			return 0, fmt.Errorf("%w: %q is longer than %d hours", ErrInvalidTimestamp, s, maxTimestampSeconds/3600)
		}
	}
	return total*1000 + fraction, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Size formats a size in bytes for human display.
// Uses MB for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	if bytes >= kb {
		return fmt.Sprintf("%d KB", bytes/kb)
	}
	return fmt.Sprintf("%d bytes", bytes)
}
