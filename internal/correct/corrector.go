// Package correct lets an operator confirm or fix track boundaries.
package correct

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/format"
	"github.com/alnah/go-tracksplit/internal/track"
)

// Previewer lets the operator hear the slice a descriptor currently covers.
type Previewer interface {
	Preview(ctx context.Context, d *track.Descriptor) error
}

// state is a step of the correction loop.
type state int

const (
	stateProposed state = iota
	stateEditing
	stateFinalized
)

// Corrector runs the propose, preview, confirm and edit loop on a terminal.
type Corrector struct {
	in        *bufio.Reader
	out       io.Writer
	previewer Previewer
	// pending is the read still waiting on input, if any. Only one read
	// is ever in flight on in.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// New creates a Corrector reading answers from in and writing prompts to out.
// A nil previewer skips playback.
func New(in io.Reader, out io.Writer, previewer Previewer) *Corrector {
	return &Corrector{
		in:        bufio.NewReader(in),
		out:       out,
		previewer: previewer,
	}
}

// Resolve loops until the operator accepts the bounds of d, editing d in
// place. Bounds are clamped to [0, buf.Len()] after every edit.
func (c *Corrector) Resolve(ctx context.Context, buf audio.Buffer, d *track.Descriptor) (*track.Descriptor, error) {
	edited := false
	st := stateProposed
	for {
		switch st {
		case stateProposed:
			fmt.Fprintf(c.out, "Proposed %s: %s -> %s (%s)\n",
				d.Label(), format.Timestamp(d.StartMs), format.Timestamp(d.EndMs), d.Status)
			c.preview(ctx, d)
			ok, err := c.confirm(ctx, "Is the export correct")
			if err != nil {
				return nil, err
			}
			if ok {
				st = stateFinalized
			} else {
				st = stateEditing
			}

		case stateEditing:
			if err := c.edit(ctx, buf.Len(), d); err != nil {
				return nil, err
			}
			edited = true
			st = stateProposed

		case stateFinalized:
			if edited || d.Status == track.StatusNeedsReview {
				d.Status = track.StatusCorrected
			}
			return d, nil
		}
	}
}

func (c *Corrector) preview(ctx context.Context, d *track.Descriptor) {
	if c.previewer == nil {
		return
	}
	fmt.Fprintln(c.out, "Playing preview...")
	if err := c.previewer.Preview(ctx, d); err != nil && ctx.Err() == nil {
		fmt.Fprintf(c.out, "Warning: preview unavailable: %v\n", err)
	}
}

// edit asks for a new start and end, then clamps the result.
func (c *Corrector) edit(ctx context.Context, length int, d *track.Descriptor) error {
	change, err := c.confirm(ctx, fmt.Sprintf("Change the start (%s)", format.Timestamp(d.StartMs)))
	if err != nil {
		return err
	}
	if change {
		if d.StartMs, err = c.bound(ctx, "start", d.StartMs); err != nil {
			return err
		}
	}

	change, err = c.confirm(ctx, fmt.Sprintf("Change the end (%s)", format.Timestamp(d.EndMs)))
	if err != nil {
		return err
	}
	if change {
		if d.EndMs, err = c.bound(ctx, "end", d.EndMs); err != nil {
			return err
		}
	}

	d.Clamp(length)
	return nil
}

// bound asks for a replacement value as a timestamp or a relative offset.
func (c *Corrector) bound(ctx context.Context, name string, current int) (int, error) {
	choice, err := c.choose(ctx, "How do you want to set the "+name,
		"Absolute timestamp (HH:MM:SS.mmm)",
		"Relative offset in milliseconds (e.g. -1500)")
	if err != nil {
		return 0, err
	}
	if choice == 0 {
		return c.timestamp(ctx, "New "+name)
	}
	off, err := c.offset(ctx, "Offset for the "+name)
	if err != nil {
		return 0, err
	}
	return current + off, nil
}

// confirm asks a yes/no question. An empty answer means yes.
func (c *Corrector) confirm(ctx context.Context, question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [Y/n]? ", question)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(c.out, "Invalid choice, answer y or n.")
	}
}

// choose shows a numbered menu and returns the zero-based choice.
func (c *Corrector) choose(ctx context.Context, question string, options ...string) (int, error) {
	for {
		fmt.Fprintf(c.out, "%s:\n", question)
		for i, o := range options {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, o)
		}
		fmt.Fprint(c.out, "> ")
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(c.out, "Invalid choice, pick 1 to %d.\n", len(options))
	}
}

// timestamp asks until a valid [[HH:]MM:]SS[.mmm] is entered.
func (c *Corrector) timestamp(ctx context.Context, question string) (int, error) {
	for {
		fmt.Fprintf(c.out, "%s (HH:MM:SS.mmm): ", question)
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		ms, parseErr := format.ParseTimestamp(line)
		if parseErr == nil {
			return ms, nil
		}
		fmt.Fprintf(c.out, "Invalid timestamp %q.\n", line)
	}
}

// offset asks until a signed integer is entered. An empty answer means 0.
func (c *Corrector) offset(ctx context.Context, question string) (int, error) {
	for {
		fmt.Fprintf(c.out, "%s (ms): ", question)
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if line == "" {
			return 0, nil
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil {
			return n, nil
		}
		fmt.Fprintf(c.out, "Invalid number %q.\n", line)
	}
}

// readLine returns one trimmed line. EOF and cancellation abort, even while
// the read is blocked waiting for input.
func (c *Corrector) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
		c.pending = ch
	}

	var r lineResult
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	case r = <-c.pending:
		c.pending = nil
	}

	if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
		if errors.Is(r.err, io.EOF) {
			fmt.Fprintln(c.out)
			return "", fmt.Errorf("%w: end of input", ErrAborted)
		}
		return "", fmt.Errorf("%w: %w", ErrAborted, r.err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return strings.TrimSpace(r.line), nil
}
