package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// SupportedInputFormats lists source extensions the decoders accept.
var SupportedInputFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".webm": true,
	".mp4":  true,
}

// SupportedInputList returns a sorted, comma-separated list for error messages.
func SupportedInputList() string {
	formats := make([]string, 0, len(SupportedInputFormats))
	for ext := range SupportedInputFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// Decoder turns an audio file into a PCMBuffer.
type Decoder interface {
	Decode(ctx context.Context, path string) (*PCMBuffer, error)
}

// Compile-time interface implementation checks.
var (
	_ Decoder = (*WAVDecoder)(nil)
	_ Decoder = (*FFmpegDecoder)(nil)
	_ Decoder = (*FileDecoder)(nil)
)

// wavChunkSamples is the number of samples read per WAV decode call.
const wavChunkSamples = 16384

// WAVDecoder reads integer PCM WAV files natively.
type WAVDecoder struct{}

// Decode reads every sample of a 16, 24 or 32-bit integer PCM WAV file.
// Other encodings are reported as ErrUnsupportedFormat.
func (WAVDecoder) Decode(ctx context.Context, path string) (*PCMBuffer, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the operator's source file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, path)
	}
	if d.WavAudioFormat != 1 || d.BitDepth < 16 {
		return nil, fmt.Errorf("%w: WAV encoding %d at %d bits", ErrUnsupportedFormat, d.WavAudioFormat, d.BitDepth)
	}

	b := NewPCMBuilder(int(d.SampleRate), int(d.NumChans), int(d.BitDepth))
	buf := &goaudio.IntBuffer{
		Format:         d.Format(),
		Data:           make([]int, wavChunkSamples),
		SourceBitDepth: int(d.BitDepth),
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		if n == 0 {
			break
		}
		b.Write(buf.Data[:n])
	}
	return b.Build(), nil
}

// Default FFmpeg decoding parameters.
const (
	defaultDecodeRate     = 44100
	defaultDecodeChannels = 2
)

// FFmpegDecoder decodes any FFmpeg-readable source by streaming signed
// 16-bit little-endian PCM from an FFmpeg subprocess.
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
	channels   int
	progress   io.Writer

	stream streamRunner
	cmd    commandRunner
	files  fileStatter
}

// FFmpegDecoderOption configures an FFmpegDecoder.
type FFmpegDecoderOption func(*FFmpegDecoder)

// WithDecodeFormat sets the output sample rate and channel count.
func WithDecodeFormat(sampleRate, channels int) FFmpegDecoderOption {
	return func(d *FFmpegDecoder) {
		if sampleRate > 0 {
			d.sampleRate = sampleRate
		}
		if channels > 0 {
			d.channels = channels
		}
	}
}

// WithProgress renders a decoding progress bar to w.
func WithProgress(w io.Writer) FFmpegDecoderOption {
	return func(d *FFmpegDecoder) {
		d.progress = w
	}
}

// withStreamRunner sets a custom stream runner (for testing).
func withStreamRunner(r streamRunner) FFmpegDecoderOption {
	return func(d *FFmpegDecoder) {
		d.stream = r
	}
}

// withDecoderCommandRunner sets a custom command runner (for testing).
func withDecoderCommandRunner(r commandRunner) FFmpegDecoderOption {
	return func(d *FFmpegDecoder) {
		d.cmd = r
	}
}

// withDecoderFileStatter sets a custom file statter (for testing).
func withDecoderFileStatter(s fileStatter) FFmpegDecoderOption {
	return func(d *FFmpegDecoder) {
		d.files = s
	}
}

// NewFFmpegDecoder creates a decoder driving the given FFmpeg binary.
func NewFFmpegDecoder(ffmpegPath string, opts ...FFmpegDecoderOption) *FFmpegDecoder {
	d := &FFmpegDecoder{
		ffmpegPath: ffmpegPath,
		sampleRate: defaultDecodeRate,
		channels:   defaultDecodeChannels,
		stream:     osStreamRunner{},
		cmd:        osCommandRunner{},
		files:      osFileStatter{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode streams the source through FFmpeg into a PCMBuffer.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (*PCMBuffer, error) {
	if _, err := d.files.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	b := NewPCMBuilder(d.sampleRate, d.channels, 16)
	pr, pw := io.Pipe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := d.stream.Stream(gctx, d.ffmpegPath, d.decodeArgs(path), pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		var r io.Reader = pr
		if bar := d.progressBar(ctx, path); bar != nil {
			defer func() { _ = bar.Finish() }()
			r = io.TeeReader(pr, bar)
		}
		err := readS16LE(r, b)
		pr.CloseWithError(err)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	return b.Build(), nil
}

func (d *FFmpegDecoder) decodeArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(d.sampleRate),
		"-ac", strconv.Itoa(d.channels),
		"pipe:1",
	}
}

// progressBar returns nil when no progress writer is configured.
// The bar is sized from the probed duration when FFmpeg reports one.
func (d *FFmpegDecoder) progressBar(ctx context.Context, path string) *progressbar.ProgressBar {
	if d.progress == nil {
		return nil
	}
	total := int64(-1)
	if dur, err := d.probeDuration(ctx, path); err == nil && dur > 0 {
		total = int64(dur.Seconds() * float64(d.sampleRate*d.channels*2))
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription("Decoding"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// probeDuration returns the duration FFmpeg reports for a file.
func (d *FFmpegDecoder) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	output, err := d.cmd.CombinedOutput(ctx, d.ffmpegPath, []string{"-hide_banner", "-i", path})
	if err != nil && len(output) == 0 {
		// FFmpeg exits non-zero without an output file, so only a silent
		// failure is fatal.
		return 0, err
	}
	return parseDurationFromFFmpegOutput(string(output))
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDurationFromFFmpegOutput extracts "Duration: HH:MM:SS.ff" from FFmpeg stderr.
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])

	// Normalize the fraction to milliseconds whatever its precision.
	frac := m[4]
	if len(frac) > 3 {
		frac = frac[:3]
	}
	ms, _ := strconv.Atoi(frac + strings.Repeat("0", 3-len(frac)))

	return time.Duration(h)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// s16Chunk is the read size for streamed PCM, a multiple of every frame size.
const s16Chunk = 64 * 1024

// readS16LE feeds signed 16-bit little-endian samples from r into b.
// A dangling odd byte at EOF is dropped.
func readS16LE(r io.Reader, b *PCMBuilder) error {
	raw := make([]byte, s16Chunk)
	samples := make([]int, 0, s16Chunk/2)
	carry := -1
	for {
		n, err := r.Read(raw)
		chunk := raw[:n]
		samples = samples[:0]
		if carry >= 0 && len(chunk) > 0 {
			samples = append(samples, int(int16(uint16(carry)|uint16(chunk[0])<<8)))
			chunk = chunk[1:]
			carry = -1
		}
		for len(chunk) >= 2 {
			samples = append(samples, int(int16(uint16(chunk[0])|uint16(chunk[1])<<8)))
			chunk = chunk[2:]
		}
		if len(chunk) == 1 {
			carry = int(chunk[0])
		}
		b.Write(samples)

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// FileDecoder picks the native WAV decoder for .wav sources and FFmpeg
// for everything else, including WAV encodings the native reader rejects.
type FileDecoder struct {
	wav    WAVDecoder
	ffmpeg *FFmpegDecoder
}

// NewFileDecoder creates a FileDecoder. A nil ffmpeg limits it to WAV.
func NewFileDecoder(ffmpeg *FFmpegDecoder) *FileDecoder {
	return &FileDecoder{ffmpeg: ffmpeg}
}

// Decode decodes path with the most suitable decoder.
func (d *FileDecoder) Decode(ctx context.Context, path string) (*PCMBuffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := d.wav.Decode(ctx, path)
		if err == nil || d.ffmpeg == nil || !errors.Is(err, ErrUnsupportedFormat) {
			return buf, err
		}
	}
	if d.ffmpeg == nil {
		return nil, fmt.Errorf("%w: %s requires ffmpeg", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return d.ffmpeg.Decode(ctx, path)
}
