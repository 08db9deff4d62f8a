// Package segment turns a track list and decoded audio into track bounds.
package segment

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/format"
	"github.com/alnah/go-tracksplit/internal/track"
)

// Locator finds a silent position near a target offset.
type Locator interface {
	Search(buf audio.Buffer, target int) audio.Match
}

// Resolver settles a boundary the planner could not place on its own.
// It may move StartMs and EndMs; the planner keeps neighbors disjoint.
type Resolver interface {
	Resolve(ctx context.Context, buf audio.Buffer, d *track.Descriptor) (*track.Descriptor, error)
}

var _ Locator = (*audio.SilenceLocator)(nil)

// Plan is the outcome of segmenting one source.
type Plan struct {
	Descriptors []*track.Descriptor
	LengthMs    int
	// Exhausted is set when the source ended before the track list did.
	Exhausted bool
	// Skipped lists tracks never reached because the source was exhausted.
	Skipped []track.Metadata
}

// Unresolved counts descriptors still waiting for review.
func (p *Plan) Unresolved() int {
	n := 0
	for _, d := range p.Descriptors {
		if d.Status == track.StatusNeedsReview {
			n++
		}
	}
	return n
}

// Planner walks the track list in order, snapping each nominal end to the
// nearest silence and handing unplaceable boundaries to a Resolver.
type Planner struct {
	locator   Locator
	resolver  Resolver
	reviewAll bool
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithResolver sets the resolver for boundaries without silence.
// Without one such boundaries stay in StatusNeedsReview.
func WithResolver(r Resolver) Option {
	return func(p *Planner) {
		p.resolver = r
	}
}

// WithReviewAll sends every non-truncated boundary to the resolver.
func WithReviewAll(on bool) Option {
	return func(p *Planner) {
		p.reviewAll = on
	}
}

// WithOutput sets where per-track diagnostic lines are written.
func WithOutput(w io.Writer) Option {
	return func(p *Planner) {
		if w != nil {
			p.out = w
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlanner creates a Planner using locator for silence search.
func NewPlanner(locator Locator, opts ...Option) *Planner {
	p := &Planner{
		locator: locator,
		out:     io.Discard,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan computes one descriptor per track until the list or the audio runs out.
// On error the descriptors planned so far are returned with it.
func (p *Planner) Plan(ctx context.Context, tracks []track.Metadata, buf audio.Buffer) (*Plan, error) {
	length := buf.Len()
	plan := &Plan{LengthMs: length}
	start := 0

	for i, m := range tracks {
		if err := ctx.Err(); err != nil {
			return plan, err
		}
		if start >= length {
			plan.Exhausted = true
			plan.Skipped = append(plan.Skipped, tracks[i:]...)
			p.logger.Warn("source exhausted before track list",
				"at_ms", start, "length_ms", length, "remaining", len(tracks)-i)
			break
		}

		d := track.NewDescriptor(m, m.Position)
		d.StartMs = start
		fmt.Fprintf(p.out, "----- %s -----\n", m.Label())

		p.place(d, buf)

		if d.Status == track.StatusNeedsReview || (p.reviewAll && d.Status == track.StatusDetected) {
			if err := p.resolve(ctx, buf, d, plan.Descriptors); err != nil {
				return plan, err
			}
		}

		d.Clamp(length)
		plan.Descriptors = append(plan.Descriptors, d)
		start = d.EndMs + 1
	}
	return plan, nil
}

// place sets EndMs, DeltaMs and Status from the nominal end.
func (p *Planner) place(d *track.Descriptor, buf audio.Buffer) {
	length := buf.Len()
	end := d.StartMs + d.Metadata.DurationMs

	if end >= length {
		d.EndMs = length - 1
		d.DeltaMs = d.DurationMs() - d.Metadata.DurationMs
		d.Status = track.StatusIncomplete
		fmt.Fprintf(p.out, "End of source reached, track truncated at %s\n", format.Timestamp(d.EndMs))
		p.logger.Info("track truncated", "track", d.Number, "end_ms", d.EndMs, "nominal_end_ms", end)
		return
	}

	m := p.locator.Search(buf, end)
	if m.Found && m.Position > d.StartMs {
		d.EndMs = m.Position
		d.DeltaMs = d.DurationMs() - d.Metadata.DurationMs
		d.Status = track.StatusDetected
		fmt.Fprintf(p.out, "Silence found at %s (difference with listed duration: %s)\n",
			format.Timestamp(d.EndMs), format.Timestamp(d.DeltaMs))
		p.logger.Debug("boundary snapped to silence",
			"track", d.Number, "end_ms", d.EndMs, "delta_ms", d.DeltaMs, "step", m.Step, "forward", m.Forward)
		return
	}

	d.EndMs = end
	d.DeltaMs = 0
	d.Status = track.StatusNeedsReview
	fmt.Fprintf(p.out, "No silence found near %s, boundary needs review\n", format.Timestamp(end))
	p.logger.Info("no silence near nominal end", "track", d.Number, "nominal_end_ms", end)
}

// resolve hands d to the resolver and re-links it to its predecessor.
func (p *Planner) resolve(ctx context.Context, buf audio.Buffer, d *track.Descriptor, done []*track.Descriptor) error {
	if p.resolver == nil {
		return nil
	}
	startBefore := d.StartMs
	got, err := p.resolver.Resolve(ctx, buf, d)
	if err != nil {
		return fmt.Errorf("resolve track %d: %w", d.Number, err)
	}
	if got != nil && got != d {
		*d = *got
	}
	d.Clamp(buf.Len())
	d.DeltaMs = d.DurationMs() - d.Metadata.DurationMs

	if d.StartMs != startBefore && len(done) > 0 {
		relink(done[len(done)-1], d)
	}
	p.logger.Debug("boundary resolved",
		"track", d.Number, "start_ms", d.StartMs, "end_ms", d.EndMs, "status", d.Status.String())
	return nil
}

// relink keeps prev and d disjoint after d's start moved: prev ends right
// before d, and d never starts at or before prev's start.
func relink(prev, d *track.Descriptor) {
	if d.StartMs <= prev.StartMs {
		d.StartMs = prev.StartMs + 1
		d.EndMs = max(d.EndMs, d.StartMs)
	}
	prev.EndMs = d.StartMs - 1
	prev.DeltaMs = prev.DurationMs() - prev.Metadata.DurationMs
	if prev.Status == track.StatusDetected {
		prev.Status = track.StatusCorrected
	}
}
