package audio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/alnah/go-tracksplit/internal/audio"
)

// writeWAV writes a 16-bit mono WAV file of the given samples.
func writeWAV(t *testing.T, path string, sampleRate int, samples []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestWAVDecoder - Native WAV decoding
// ---------------------------------------------------------------------------

func TestWAVDecoder_Decode(t *testing.T) {
	t.Parallel()

	// One second at 8kHz with 250ms of silence starting at 500ms.
	samples := make([]int, 8000)
	for i := range samples {
		if i < 4000 || i >= 6000 {
			samples[i] = 1200
		}
	}
	path := filepath.Join(t.TempDir(), "mix.wav")
	writeWAV(t, path, 8000, samples)

	buf, err := audio.WAVDecoder{}.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if buf.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", buf.Len())
	}
	if got := buf.RMS(500, 750); got != 0 {
		t.Errorf("RMS(500, 750) = %v, want 0", got)
	}
	if got := buf.RMS(499, 600); got == 0 {
		t.Error("RMS(499, 600) = 0, want > 0")
	}

	found, pos := audio.NewSilenceLocator().Locate(buf, 520)
	if !found || pos != 520 {
		t.Errorf("Locate(520) = (%v, %d), want (true, 520)", found, pos)
	}
}

func TestWAVDecoder_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("not a riff file at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.wav"), wantErr: audio.ErrFileNotFound},
		{name: "not a wav", path: garbage, wantErr: audio.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := audio.WAVDecoder{}.Decode(context.Background(), tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFFmpegDecoder - Streams s16le PCM from FFmpeg
// ---------------------------------------------------------------------------

func TestFFmpegDecoder_Decode(t *testing.T) {
	t.Parallel()

	// 3ms of 1kHz mono: silent, silent, loud.
	stream := &mockStreamRunner{data: []byte{0, 0, 0, 0, 0x10, 0x00}}
	d := audio.NewFFmpegDecoder("/usr/bin/ffmpeg",
		audio.WithDecodeFormat(1000, 1),
		audio.WithStreamRunner(stream),
		audio.WithDecoderFileStatter(mockFileStatter{}),
	)

	buf, err := d.Decode(context.Background(), "source.mp3")
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if buf.Len() != 3 {
		t.Errorf("Len() = %d, want 3", buf.Len())
	}
	if buf.RMS(0, 2) != 0 {
		t.Errorf("RMS(0, 2) = %v, want 0", buf.RMS(0, 2))
	}
	if buf.RMS(2, 3) == 0 {
		t.Error("RMS(2, 3) = 0, want > 0")
	}

	for _, want := range [][]string{{"-i", "source.mp3"}, {"-f", "s16le"}, {"-ar", "1000"}, {"-ac", "1"}} {
		if !contains(stream.args, want...) {
			t.Errorf("args %v missing %v", stream.args, want)
		}
	}
}

func TestFFmpegDecoder_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		d := audio.NewFFmpegDecoder("/usr/bin/ffmpeg",
			audio.WithStreamRunner(&mockStreamRunner{}),
			audio.WithDecoderFileStatter(mockFileStatter{err: os.ErrNotExist}),
		)
		_, err := d.Decode(context.Background(), "missing.mp3")
		if !errors.Is(err, audio.ErrFileNotFound) {
			t.Errorf("Decode() error = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("ffmpeg failure", func(t *testing.T) {
		t.Parallel()

		d := audio.NewFFmpegDecoder("/usr/bin/ffmpeg",
			audio.WithStreamRunner(&mockStreamRunner{data: []byte{0, 0}, err: errors.New("exit status 1: invalid data")}),
			audio.WithDecoderFileStatter(mockFileStatter{}),
		)
		_, err := d.Decode(context.Background(), "broken.mp3")
		if !errors.Is(err, audio.ErrDecodeFailed) {
			t.Errorf("Decode() error = %v, want ErrDecodeFailed", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := audio.NewFFmpegDecoder("/usr/bin/ffmpeg",
			audio.WithStreamRunner(&mockStreamRunner{err: context.Canceled}),
			audio.WithDecoderFileStatter(mockFileStatter{}),
		)
		_, err := d.Decode(ctx, "source.mp3")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Decode() error = %v, want context.Canceled", err)
		}
	})
}

func TestFileDecoder_NonWAVWithoutFFmpeg(t *testing.T) {
	t.Parallel()

	_, err := audio.NewFileDecoder(nil).Decode(context.Background(), "mix.mp3")
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFileDecoder_FallsBackToFFmpeg(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "float.wav")
	if err := os.WriteFile(path, []byte("RIFF????WAVEjunk"), 0o600); err != nil {
		t.Fatal(err)
	}
	stream := &mockStreamRunner{data: []byte{0, 0}}
	ff := audio.NewFFmpegDecoder("/usr/bin/ffmpeg",
		audio.WithDecodeFormat(1000, 1),
		audio.WithStreamRunner(stream),
		audio.WithDecoderFileStatter(mockFileStatter{}),
	)

	buf, err := audio.NewFileDecoder(ff).Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if buf.Len() != 1 {
		t.Errorf("Len() = %d, want 1", buf.Len())
	}
	if stream.args == nil {
		t.Error("ffmpeg decoder was not used")
	}
}

// ---------------------------------------------------------------------------
// TestParseDurationFromFFmpegOutput
// ---------------------------------------------------------------------------

func TestParseDurationFromFFmpegOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		want    time.Duration
		wantErr bool
	}{
		{
			name:   "centiseconds",
			output: "  Duration: 00:10:00.05, start: 0.000000, bitrate: 320 kb/s",
			want:   10*time.Minute + 50*time.Millisecond,
		},
		{
			name:   "microseconds truncated",
			output: "Duration: 01:02:03.456789",
			want:   time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond,
		},
		{name: "missing", output: "Input #0, mp3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := audio.ParseDurationFromFFmpegOutput(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDurationFromFFmpegOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDurationFromFFmpegOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}
