package audio

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/alnah/go-tracksplit/internal/format"
)

// DefaultBitrate is the lossy encoding bitrate used when none is configured.
const DefaultBitrate = "320k"

// outputCodecs maps an output extension to its FFmpeg codec name.
// Lossy codecs honor the configured bitrate.
var outputCodecs = map[string]struct {
	codec string
	lossy bool
}{
	"mp3":  {codec: "libmp3lame", lossy: true},
	"ogg":  {codec: "libvorbis", lossy: true},
	"m4a":  {codec: "aac", lossy: true},
	"flac": {codec: "flac"},
	"wav":  {codec: "pcm_s16le"},
}

// SupportedOutputFormats returns the sorted list of exportable extensions.
func SupportedOutputFormats() []string {
	return slices.Sorted(maps.Keys(outputCodecs))
}

// IsSupportedOutput reports whether ext (without dot) can be exported.
func IsSupportedOutput(ext string) bool {
	_, ok := outputCodecs[strings.ToLower(ext)]
	return ok
}

// FFmpegExtractor cuts, converts and plays segments with FFmpeg tools.
type FFmpegExtractor struct {
	ffmpegPath string
	ffplayPath string
	bitrate    string

	cmd    commandRunner
	player interactiveRunner
}

// ExtractorOption configures an FFmpegExtractor.
type ExtractorOption func(*FFmpegExtractor)

// WithBitrate sets the bitrate for lossy output formats.
func WithBitrate(bitrate string) ExtractorOption {
	return func(e *FFmpegExtractor) {
		if bitrate != "" {
			e.bitrate = bitrate
		}
	}
}

// WithPlayer sets the ffplay binary used for previews.
func WithPlayer(ffplayPath string) ExtractorOption {
	return func(e *FFmpegExtractor) {
		e.ffplayPath = ffplayPath
	}
}

// withCommandRunner sets a custom command runner (for testing).
func withCommandRunner(r commandRunner) ExtractorOption {
	return func(e *FFmpegExtractor) {
		e.cmd = r
	}
}

// withInteractiveRunner sets a custom player runner (for testing).
func withInteractiveRunner(r interactiveRunner) ExtractorOption {
	return func(e *FFmpegExtractor) {
		e.player = r
	}
}

// NewFFmpegExtractor creates an extractor driving the given FFmpeg binary.
func NewFFmpegExtractor(ffmpegPath string, opts ...ExtractorOption) *FFmpegExtractor {
	e := &FFmpegExtractor{
		ffmpegPath: ffmpegPath,
		bitrate:    DefaultBitrate,
		cmd:        osCommandRunner{},
		player:     osInteractiveRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract copies [startMs, endMs] of src into dst without re-encoding.
// dst must share the container of src.
func (e *FFmpegExtractor) Extract(ctx context.Context, src, dst string, startMs, endMs int) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-ss", format.Timestamp(startMs),
		"-to", format.Timestamp(endMs),
		"-map", "0:a",
		"-c", "copy",
		dst,
	}
	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s [%s-%s]: %v\nOutput: %s",
			ErrExtractFailed, dst, format.Timestamp(startMs), format.Timestamp(endMs), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcode converts src into dst using the codec for ext.
func (e *FFmpegExtractor) Transcode(ctx context.Context, src, dst, ext string) error {
	args, err := e.transcodeArgs(src, dst, ext)
	if err != nil {
		return err
	}
	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrTranscodeFailed, dst, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (e *FFmpegExtractor) transcodeArgs(src, dst, ext string) ([]string, error) {
	c, ok := outputCodecs[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedOutputFormats(), ", "))
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-map", "0:a",
		"-c:a", c.codec,
	}
	if c.lossy {
		args = append(args, "-b:a", e.bitrate)
	}
	return append(args, dst), nil
}

// CanPlay reports whether a player binary is configured.
func (e *FFmpegExtractor) CanPlay() bool {
	return e.ffplayPath != ""
}

// Play plays path with ffplay and returns when playback ends.
func (e *FFmpegExtractor) Play(ctx context.Context, path string) error {
	if e.ffplayPath == "" {
		return ErrPlayerNotFound
	}
	args := []string{"-nodisp", "-autoexit", "-hide_banner", "-loglevel", "error", path}
	if err := e.player.Run(ctx, e.ffplayPath, args); err != nil {
		return fmt.Errorf("ffplay %s: %w", path, err)
	}
	return nil
}
