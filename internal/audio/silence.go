package audio

// Silence search parameters.
const (
	// DefaultSearchWindow is the number of one-second steps probed on each
	// side of a target before giving up.
	DefaultSearchWindow = 20

	// probeWidthMs is the width of one search step.
	probeWidthMs = 1000

	// analysisWindowMs is the width of the window that must be fully silent.
	analysisWindowMs = 100
)

// Match describes the outcome of a silence search.
type Match struct {
	Found    bool
	Position int  // Offset of the silent window, or the target when not found.
	Step     int  // Search step k at which the window was found.
	Forward  bool // True when found after the target.
}

// SilenceLocator finds the silent window nearest to a target offset.
//
// The search alternates outward one second at a time: step k first scans
// [target+k*1000, target+(k+1)*1000) in ascending order, then
// [target-(k+1)*1000, target-k*1000) in descending order. The first offset
// whose 100ms window has an RMS of exactly zero wins. Identical inputs always
// yield identical results.
type SilenceLocator struct {
	window int
}

// LocatorOption configures a SilenceLocator.
type LocatorOption func(*SilenceLocator)

// WithSearchWindow sets the number of seconds probed on each side.
// Negative values are ignored.
func WithSearchWindow(seconds int) LocatorOption {
	return func(l *SilenceLocator) {
		if seconds >= 0 {
			l.window = seconds
		}
	}
}

// NewSilenceLocator creates a locator with the default search window.
func NewSilenceLocator(opts ...LocatorOption) *SilenceLocator {
	l := &SilenceLocator{window: DefaultSearchWindow}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the configured search window in seconds.
func (l *SilenceLocator) Window() int { return l.window }

// Locate returns the offset of the nearest silent window around target.
// When none exists within the search window it returns (false, target).
func (l *SilenceLocator) Locate(buf Buffer, target int) (bool, int) {
	m := l.Search(buf, target)
	return m.Found, m.Position
}

// Search is Locate with the step and direction that produced the match.
func (l *SilenceLocator) Search(buf Buffer, target int) Match {
	n := buf.Len()
	for k := 0; k <= l.window; k++ {
		if pos, ok := scanForward(buf, n, target+k*probeWidthMs); ok {
			return Match{Found: true, Position: pos, Step: k, Forward: true}
		}
		if pos, ok := scanBackward(buf, n, target-k*probeWidthMs); ok {
			return Match{Found: true, Position: pos, Step: k}
		}
	}
	return Match{Position: target}
}

// scanForward checks offsets in [from, from+probeWidthMs) in ascending order.
func scanForward(buf Buffer, n, from int) (int, bool) {
	lo := max(from, 0)
	hi := min(from+probeWidthMs, n-analysisWindowMs+1)
	for o := lo; o < hi; o++ {
		if buf.RMS(o, o+analysisWindowMs) == 0 {
			return o, true
		}
	}
	return 0, false
}

// scanBackward checks offsets in [to-probeWidthMs, to) in descending order.
func scanBackward(buf Buffer, n, to int) (int, bool) {
	lo := max(to-probeWidthMs, 0)
	hi := min(to, n-analysisWindowMs+1)
	for o := hi - 1; o >= lo; o-- {
		if buf.RMS(o, o+analysisWindowMs) == 0 {
			return o, true
		}
	}
	return 0, false
}
