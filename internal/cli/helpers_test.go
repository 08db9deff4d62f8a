package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/config"
	"github.com/alnah/go-tracksplit/internal/track"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpeg    *mockFFmpegResolver
	config    *mockConfigLoader
	decoder   *mockDecoderFactory
	tracks    *mockTrackSourceFactory
	media     *mockMediaFactory
	tool      *mockMediaTool
	tagger    *mockTaggerFactory
	publisher *mockPublisherFactory
	locker    *mockLocker
	stdout    *syncBuffer
	stderr    *syncBuffer
}

// testEnv creates an Env with every dependency mocked. The decoder yields
// mixBuffer and the track list mixTracks unless a test overrides them.
func testEnv(stdin string, terminal bool) (*Env, *testMocks) {
	tool := &mockMediaTool{}
	m := &testMocks{
		ffmpeg:    &mockFFmpegResolver{},
		config:    &mockConfigLoader{Config: config.Config{LogLevel: "warn", LogFormat: "text"}},
		decoder:   &mockDecoderFactory{Buffer: mixBuffer()},
		tracks:    &mockTrackSourceFactory{Tracks: mixTracks()},
		media:     &mockMediaFactory{Tool: tool},
		tool:      tool,
		tagger:    &mockTaggerFactory{},
		publisher: &mockPublisherFactory{},
		locker:    &mockLocker{},
		stdout:    &syncBuffer{},
		stderr:    &syncBuffer{},
	}

	now := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	env := &Env{
		Stdin:              strings.NewReader(stdin),
		Stdout:             m.stdout,
		Stderr:             m.stderr,
		Getenv:             func(string) string { return "" },
		Now:                func() time.Time { return now },
		IsTerminal:         func() bool { return terminal },
		NewRunID:           func() string { return "run-1" },
		FFmpegResolver:     m.ffmpeg,
		ConfigLoader:       m.config,
		DecoderFactory:     m.decoder,
		TrackSourceFactory: m.tracks,
		MediaFactory:       m.media,
		TaggerFactory:      m.tagger,
		PublisherFactory:   m.publisher,
		Locker:             m.locker,
	}
	return env, m
}

// mixBuffer is a 12s mono 1kHz source, loud except for [4950, 5100).
func mixBuffer() *audio.PCMBuffer {
	samples := make([]int, 12_000)
	for i := range samples {
		if i < 4950 || i >= 5100 {
			samples[i] = 8000
		}
	}
	return audio.NewPCMBuffer(1000, 1, 16, samples)
}

// mixTracks over mixBuffer: the first boundary snaps to the silence at
// 5000, the second has no silence nearby and the third runs past the end.
func mixTracks() []track.Metadata {
	return []track.Metadata{
		{Position: 1, Title: "Intro", Artists: []string{"Kid A"}, Album: "Night", DurationMs: 5000},
		{Position: 2, Title: "Drive", Artists: []string{"Kid A", "Bee"}, Album: "Night", DurationMs: 6000},
		{Position: 3, Title: "Outro", Artists: []string{"Bee"}, Album: "Night", DurationMs: 5000, CoverURL: "https://img.test/c.jpg"},
	}
}

// writeSource creates an empty source file with the given extension.
func writeSource(t *testing.T, ext string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "night drive"+ext)
	if err := os.WriteFile(p, nil, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

// listDir returns the file names in dir, skipping nothing.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%q): %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
