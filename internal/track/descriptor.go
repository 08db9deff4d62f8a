package track

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Status records how a descriptor's bounds were decided.
type Status int

const (
	// StatusPending is a descriptor not yet planned.
	StatusPending Status = iota
	// StatusDetected is a boundary snapped to detected silence.
	StatusDetected
	// StatusNeedsReview is a boundary left at the nominal end for lack of silence.
	StatusNeedsReview
	// StatusCorrected is a boundary confirmed or edited by the operator.
	StatusCorrected
	// StatusIncomplete is a track truncated by the end of the source.
	StatusIncomplete
)

var statusNames = map[Status]string{
	StatusPending:     "pending",
	StatusDetected:    "detected",
	StatusNeedsReview: "needs review",
	StatusCorrected:   "corrected",
	StatusIncomplete:  "incomplete",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Output name prefixes flagging tracks that need a second look.
const (
	PrefixIncomplete = "(INCOMPLETE) "
	PrefixUnverified = "(UNVERIFIED) "
)

// Descriptor is a track with its resolved bounds in the source, in milliseconds.
// StartMs and EndMs are both inclusive positions; the next track starts at EndMs+1.
type Descriptor struct {
	Metadata
	Number  int
	StartMs int
	EndMs   int
	// DeltaMs is the signed offset of the chosen boundary from the nominal end.
	DeltaMs int
	Status  Status
	Stem    string
}

// NewDescriptor creates a pending descriptor numbered n, the track's
// position in its playlist.
func NewDescriptor(m Metadata, n int) *Descriptor {
	return &Descriptor{
		Metadata: m,
		Number:   n,
		Stem:     fmt.Sprintf("%02d %s", n, Sanitize(m.Title)),
	}
}

// DurationMs returns the length covered by the descriptor.
func (d *Descriptor) DurationMs() int {
	return d.EndMs - d.StartMs
}

// Clamp forces 0 <= StartMs <= EndMs <= lengthMs.
func (d *Descriptor) Clamp(lengthMs int) {
	d.StartMs = min(max(d.StartMs, 0), lengthMs)
	d.EndMs = min(max(d.EndMs, d.StartMs), lengthMs)
}

// Prefix returns the name prefix flagging the descriptor's status.
func (d *Descriptor) Prefix() string {
	switch d.Status {
	case StatusIncomplete:
		return PrefixIncomplete
	case StatusNeedsReview:
		return PrefixUnverified
	default:
		return ""
	}
}

// FileName returns the output file name for the given extension (without dot).
func (d *Descriptor) FileName(ext string) string {
	return d.Prefix() + d.Stem + "." + strings.TrimPrefix(ext, ".")
}

// CheckBounds verifies descriptors are ordered, disjoint and inside the source.
func CheckBounds(ds []*Descriptor, lengthMs int) error {
	prevEnd := -1
	for _, d := range ds {
		if d.StartMs < 0 || d.EndMs > lengthMs || d.StartMs > d.EndMs {
			return fmt.Errorf("%w: %s [%d, %d] outside [0, %d]", ErrInvalidBounds, d.Stem, d.StartMs, d.EndMs, lengthMs)
		}
		if d.StartMs <= prevEnd {
			return fmt.Errorf("%w: %s starts at %d before previous end %d", ErrInvalidBounds, d.Stem, d.StartMs, prevEnd)
		}
		prevEnd = d.EndMs
	}
	return nil
}

// illegalChars are removed from titles before they become file names.
var illegalChars = strings.NewReplacer(
	"/", "", "\\", "", "*", "", "?", "", ":", "",
	"\"", "", "<", "", ">", "", "|", "", "\x00", "",
)

// Sanitize makes a title safe to use as a file name on common filesystems.
func Sanitize(title string) string {
	s := illegalChars.Replace(norm.NFC.String(title))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return "Untitled"
	}
	return s
}
