package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/config"
	"github.com/alnah/go-tracksplit/internal/export"
	"github.com/alnah/go-tracksplit/internal/tag"
	"github.com/alnah/go-tracksplit/internal/track"
	"github.com/alnah/go-tracksplit/internal/tracklist"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveErr error
	PlayerPath string

	mu           sync.Mutex
	resolveCalls int
	playerCalls  int
}

func (m *mockFFmpegResolver) Resolve() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalls++
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) ResolvePlayer(string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerCalls++
	return m.PlayerPath
}

func (m *mockFFmpegResolver) CheckVersion(context.Context, string) {}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	Config config.Config
	Err    error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.Config, m.Err
}

// ---------------------------------------------------------------------------
// Mock DecoderFactory + Decoder
// ---------------------------------------------------------------------------

type mockDecoderFactory struct {
	Buffer *audio.PCMBuffer
	Err    error

	decoded []string
}

func (m *mockDecoderFactory) NewDecoder(string, io.Writer) audio.Decoder {
	return m
}

func (m *mockDecoderFactory) Decode(_ context.Context, path string) (*audio.PCMBuffer, error) {
	m.decoded = append(m.decoded, path)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Buffer, nil
}

// ---------------------------------------------------------------------------
// Mock TrackSourceFactory
// ---------------------------------------------------------------------------

type mockTrackSourceFactory struct {
	Tracks []track.Metadata
	Err    error

	opened []string // catalog paths
}

func (m *mockTrackSourceFactory) Open(path, _, _ string) (tracklist.Source, error) {
	m.opened = append(m.opened, path)
	if m.Err != nil {
		return nil, m.Err
	}
	return staticSource(m.Tracks), nil
}

type staticSource []track.Metadata

func (s staticSource) Page(_ context.Context, n int) ([]track.Metadata, bool, error) {
	if n > 0 {
		return nil, false, nil
	}
	return s, false, nil
}

// ---------------------------------------------------------------------------
// Mock MediaFactory + MediaTool
// ---------------------------------------------------------------------------

type mockMediaFactory struct {
	Tool *mockMediaTool

	bitrate    string
	ffplayPath string
}

func (m *mockMediaFactory) NewMediaTool(_, ffplayPath, bitrate string) MediaTool {
	m.bitrate = bitrate
	m.ffplayPath = ffplayPath
	return m.Tool
}

// mockMediaTool writes small marker files instead of running FFmpeg.
type mockMediaTool struct {
	ExtractErr error
	CanPlayOK  bool

	mu         sync.Mutex
	extracts   [][2]int
	transcodes []string
	played     int
}

func (m *mockMediaTool) Extract(_ context.Context, _, dst string, startMs, endMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracts = append(m.extracts, [2]int{startMs, endMs})
	if m.ExtractErr != nil {
		return m.ExtractErr
	}
	return os.WriteFile(dst, []byte("slice"), 0o600)
}

func (m *mockMediaTool) Transcode(_ context.Context, _, dst, ext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcodes = append(m.transcodes, ext)
	return os.WriteFile(dst, []byte("converted"), 0o600)
}

func (m *mockMediaTool) Play(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played++
	return nil
}

func (m *mockMediaTool) CanPlay() bool { return m.CanPlayOK }

// ---------------------------------------------------------------------------
// Mock TaggerFactory
// ---------------------------------------------------------------------------

type mockTaggerFactory struct {
	tagger mockTagger
}

func (m *mockTaggerFactory) NewTagger() export.Tagger { return &m.tagger }

func (m *mockTaggerFactory) NewCoverFetcher() export.CoverFetcher { return mockCovers{} }

type mockTagger struct {
	mu     sync.Mutex
	tagged map[string]tag.Tags
}

func (m *mockTagger) Tag(path string, t tag.Tags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagged == nil {
		m.tagged = make(map[string]tag.Tags)
	}
	m.tagged[filepath.Base(path)] = t
	return nil
}

type mockCovers struct{}

func (mockCovers) Fetch(context.Context, string) (tag.Cover, error) {
	return tag.Cover{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}, nil
}

// ---------------------------------------------------------------------------
// Mock PublisherFactory
// ---------------------------------------------------------------------------

type mockPublisherFactory struct {
	runID     string
	bucket    string
	published []string
}

func (m *mockPublisherFactory) NewPublisher(_ context.Context, cfg config.S3, runID string) (export.Publisher, error) {
	m.runID = runID
	m.bucket = cfg.Bucket
	return m, nil
}

func (m *mockPublisherFactory) Publish(_ context.Context, path string) (string, error) {
	m.published = append(m.published, filepath.Base(path))
	return "https://example.test/" + filepath.Base(path), nil
}

// ---------------------------------------------------------------------------
// Mock Locker
// ---------------------------------------------------------------------------

type mockLocker struct {
	Err error

	locked   []string
	released int
}

func (m *mockLocker) Lock(dir string) (func() error, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.locked = append(m.locked, dir)
	return func() error {
		m.released++
		return nil
	}, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver     = (*mockFFmpegResolver)(nil)
	_ ConfigLoader       = (*mockConfigLoader)(nil)
	_ DecoderFactory     = (*mockDecoderFactory)(nil)
	_ TrackSourceFactory = (*mockTrackSourceFactory)(nil)
	_ MediaFactory       = (*mockMediaFactory)(nil)
	_ TaggerFactory      = (*mockTaggerFactory)(nil)
	_ PublisherFactory   = (*mockPublisherFactory)(nil)
	_ Locker             = (*mockLocker)(nil)
)
