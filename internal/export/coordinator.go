// Package export materializes planned tracks as tagged audio files.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alnah/go-tracksplit/internal/format"
	"github.com/alnah/go-tracksplit/internal/tag"
	"github.com/alnah/go-tracksplit/internal/track"
)

// Extractor cuts and converts segments of a source file.
type Extractor interface {
	Extract(ctx context.Context, src, dst string, startMs, endMs int) error
	Transcode(ctx context.Context, src, dst, ext string) error
}

// Player plays an audio file to the operator.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Tagger writes metadata into an exported file.
type Tagger interface {
	Tag(path string, t tag.Tags) error
}

// CoverFetcher downloads cover art.
type CoverFetcher interface {
	Fetch(ctx context.Context, url string) (tag.Cover, error)
}

// Publisher uploads an exported file and returns where it landed.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Result is the outcome of exporting one descriptor.
type Result struct {
	Descriptor *track.Descriptor
	Path       string
	URL        string
	Size       int64
	// Err is set when the track could not be written at all.
	Err error
}

// Report collects the results of a Finalize run.
type Report struct {
	Results []Result
}

// Exported counts tracks written to disk.
func (r *Report) Exported() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts tracks skipped because of an error.
func (r *Report) Failed() int {
	return len(r.Results) - r.Exported()
}

// Coordinator writes each descriptor's slice to the output directory.
type Coordinator struct {
	extractor Extractor
	outputDir string
	format    string

	player    Player
	tagger    Tagger
	covers    CoverFetcher
	publisher Publisher

	out    io.Writer
	logger *slog.Logger

	tempDir tempDirCreator
	files   fileOps
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPlayer enables previews through p.
func WithPlayer(p Player) Option {
	return func(c *Coordinator) { c.player = p }
}

// WithTagger enables tagging of exported files.
func WithTagger(t Tagger) Option {
	return func(c *Coordinator) { c.tagger = t }
}

// WithCoverFetcher enables cover art downloads.
func WithCoverFetcher(f CoverFetcher) Option {
	return func(c *Coordinator) { c.covers = f }
}

// WithPublisher uploads every exported file through p.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithOutput sets where progress lines are written.
func WithOutput(w io.Writer) Option {
	return func(c *Coordinator) {
		if w != nil {
			c.out = w
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// withTempDirCreator sets a custom temp dir creator (for testing).
func withTempDirCreator(t tempDirCreator) Option {
	return func(c *Coordinator) { c.tempDir = t }
}

// withFileOps sets custom file operations (for testing).
func withFileOps(f fileOps) Option {
	return func(c *Coordinator) { c.files = f }
}

// New creates a Coordinator exporting ext files (without dot) into outputDir.
func New(extractor Extractor, outputDir, ext string, opts ...Option) *Coordinator {
	c := &Coordinator{
		extractor: extractor,
		outputDir: outputDir,
		format:    strings.ToLower(strings.TrimPrefix(ext, ".")),
		out:       io.Discard,
		logger:    slog.New(slog.DiscardHandler),
		tempDir:   osTempDirCreator{},
		files:     osFileOps{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Finalize exports every descriptor in order. A track that cannot be
// extracted or converted is recorded in the report and skipped; tagging,
// cover and publishing problems are logged and the audio is kept.
// Cancellation stops before the next track and returns the partial report.
func (c *Coordinator) Finalize(ctx context.Context, sourcePath string, ds []*track.Descriptor) (*Report, error) {
	report := &Report{}
	for i, d := range ds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fmt.Fprintf(c.out, "[%d/%d] Exporting %s (%s -> %s)\n",
			i+1, len(ds), d.Label(), format.Timestamp(d.StartMs), format.Timestamp(d.EndMs))

		res := c.exportOne(ctx, sourcePath, d)
		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			fmt.Fprintf(c.out, "Warning: skipping %s: %v\n", d.Stem, res.Err)
			c.logger.Error("track export failed", "track", d.Number, "error", res.Err)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (c *Coordinator) exportOne(ctx context.Context, sourcePath string, d *track.Descriptor) Result {
	res := Result{Descriptor: d}
	if d.StartMs < 0 || d.EndMs < d.StartMs {
		res.Err = fmt.Errorf("%w: [%d, %d]", track.ErrInvalidBounds, d.StartMs, d.EndMs)
		return res
	}

	// Staging inside the output dir keeps the final rename on one filesystem.
	tmp, err := c.tempDir.MkdirTemp(c.outputDir, ".tracksplit-*")
	if err != nil {
		res.Err = fmt.Errorf("create temp dir: %w", err)
		return res
	}
	defer func() { _ = c.files.RemoveAll(tmp) }() // best-effort cleanup

	srcExt := strings.ToLower(filepath.Ext(sourcePath))
	staged := filepath.Join(tmp, "slice"+srcExt)
	if err := c.extractor.Extract(ctx, sourcePath, staged, d.StartMs, d.EndMs); err != nil {
		res.Err = err
		return res
	}
	if "."+c.format != srcExt {
		converted := filepath.Join(tmp, "track."+c.format)
		if err := c.extractor.Transcode(ctx, staged, converted, c.format); err != nil {
			res.Err = err
			return res
		}
		staged = converted
	}

	final := filepath.Join(c.outputDir, d.FileName(c.format))
	if err := c.files.Rename(staged, final); err != nil {
		res.Err = fmt.Errorf("move %s: %w", final, err)
		return res
	}
	res.Path = final
	if info, err := c.files.Stat(final); err == nil {
		res.Size = info.Size()
	}

	c.tag(ctx, d, final)
	res.URL = c.publish(ctx, d, final)
	return res
}

// tag writes metadata and cover art, logging rather than failing.
func (c *Coordinator) tag(ctx context.Context, d *track.Descriptor, path string) {
	if c.tagger == nil {
		return
	}
	tags := tag.Tags{
		Artist:      d.Artist(),
		Title:       d.Title,
		Album:       d.Album,
		TrackNumber: d.Number,
	}
	if d.CoverURL != "" && c.covers != nil {
		cover, err := c.covers.Fetch(ctx, d.CoverURL)
		if err != nil {
			fmt.Fprintf(c.out, "Warning: no cover for %s: %v\n", d.Stem, err)
			c.logger.Warn("cover fetch failed", "track", d.Number, "url", d.CoverURL, "error", err)
		} else {
			tags.Cover = &cover
		}
	}
	if err := c.tagger.Tag(path, tags); err != nil {
		fmt.Fprintf(c.out, "Warning: %s left untagged: %v\n", d.Stem, err)
		c.logger.Warn("tagging failed", "track", d.Number, "path", path, "error", err)
	}
}

// publish uploads path when a publisher is configured; failures are logged.
func (c *Coordinator) publish(ctx context.Context, d *track.Descriptor, path string) string {
	if c.publisher == nil {
		return ""
	}
	url, err := c.publisher.Publish(ctx, path)
	if err != nil {
		fmt.Fprintf(c.out, "Warning: upload of %s failed: %v\n", d.Stem, err)
		c.logger.Warn("publish failed", "track", d.Number, "error", err)
		return ""
	}
	c.logger.Info("track published", "track", d.Number, "url", url)
	return url
}

// Preview plays descriptors cut from one source file.
type Preview struct {
	c      *Coordinator
	source string
}

// Previewer returns a Preview of sourcePath.
func (c *Coordinator) Previewer(sourcePath string) *Preview {
	return &Preview{c: c, source: sourcePath}
}

// Preview cuts d's current bounds into a temp file, plays it and deletes it.
func (p *Preview) Preview(ctx context.Context, d *track.Descriptor) error {
	c := p.c
	if c.player == nil {
		return ErrNoPlayer
	}
	tmp, err := c.tempDir.MkdirTemp("", "go-tracksplit-preview-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = c.files.RemoveAll(tmp) }() // best-effort cleanup

	clip := filepath.Join(tmp, "preview"+strings.ToLower(filepath.Ext(p.source)))
	if err := c.extractor.Extract(ctx, p.source, clip, d.StartMs, d.EndMs); err != nil {
		return err
	}
	return c.player.Play(ctx, clip)
}
