package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/config"
	"github.com/alnah/go-tracksplit/internal/export"
	"github.com/alnah/go-tracksplit/internal/ffmpeg"
	"github.com/alnah/go-tracksplit/internal/storage"
	"github.com/alnah/go-tracksplit/internal/tag"
	"github.com/alnah/go-tracksplit/internal/tracklist"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Now        func() time.Time
	IsTerminal func() bool
	NewRunID   func() string

	// Factories for domain objects
	FFmpegResolver     FFmpegResolver
	ConfigLoader       ConfigLoader
	DecoderFactory     DecoderFactory
	TrackSourceFactory TrackSourceFactory
	MediaFactory       MediaFactory
	TaggerFactory      TaggerFactory
	PublisherFactory   PublisherFactory
	Locker             Locker
}

// FFmpegResolver locates the ffmpeg and ffplay binaries.
type FFmpegResolver interface {
	Resolve() (string, error)
	ResolvePlayer(ffmpegPath string) string
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// DecoderFactory creates decoders turning a source file into PCM.
type DecoderFactory interface {
	NewDecoder(ffmpegPath string, progress io.Writer) audio.Decoder
}

// TrackSourceFactory opens the track list of a playlist.
type TrackSourceFactory interface {
	Open(path, owner, name string) (tracklist.Source, error)
}

// MediaTool cuts, converts and plays audio files.
type MediaTool interface {
	export.Extractor
	export.Player
	CanPlay() bool
}

// MediaFactory creates media tools bound to resolved binaries.
type MediaFactory interface {
	NewMediaTool(ffmpegPath, ffplayPath, bitrate string) MediaTool
}

// TaggerFactory creates the tagging collaborators.
type TaggerFactory interface {
	NewTagger() export.Tagger
	NewCoverFetcher() export.CoverFetcher
}

// PublisherFactory creates a publisher for one run.
type PublisherFactory interface {
	NewPublisher(ctx context.Context, cfg config.S3, runID string) (export.Publisher, error)
}

// Locker takes an exclusive lock on a directory. The returned function
// releases it.
type Locker interface {
	Lock(dir string) (func() error, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdin sets the operator input.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) { e.Stdin = r }
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithIsTerminal sets the terminal detector for stdin.
func WithIsTerminal(fn func() bool) EnvOption {
	return func(e *Env) { e.IsTerminal = fn }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithDecoderFactory sets the decoder factory.
func WithDecoderFactory(f DecoderFactory) EnvOption {
	return func(e *Env) { e.DecoderFactory = f }
}

// WithTrackSourceFactory sets the track list factory.
func WithTrackSourceFactory(f TrackSourceFactory) EnvOption {
	return func(e *Env) { e.TrackSourceFactory = f }
}

// WithMediaFactory sets the media tool factory.
func WithMediaFactory(f MediaFactory) EnvOption {
	return func(e *Env) { e.MediaFactory = f }
}

// WithTaggerFactory sets the tagger factory.
func WithTaggerFactory(f TaggerFactory) EnvOption {
	return func(e *Env) { e.TaggerFactory = f }
}

// WithPublisherFactory sets the publisher factory.
func WithPublisherFactory(f PublisherFactory) EnvOption {
	return func(e *Env) { e.PublisherFactory = f }
}

// WithLocker sets the output directory locker.
func WithLocker(l Locker) EnvOption {
	return func(e *Env) { e.Locker = l }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	env := &Env{
		Stdin:              os.Stdin,
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		IsTerminal:         stdinIsTerminal,
		NewRunID:           uuid.NewString,
		FFmpegResolver:     &defaultFFmpegResolver{},
		DecoderFactory:     &defaultDecoderFactory{},
		TrackSourceFactory: &defaultTrackSourceFactory{},
		MediaFactory:       &defaultMediaFactory{},
		TaggerFactory:      &defaultTaggerFactory{},
		PublisherFactory:   &defaultPublisherFactory{},
		Locker:             &flockLocker{},
	}
	// Resolved at load time so WithGetenv also reaches the config.
	env.ConfigLoader = &defaultConfigLoader{getenv: func(key string) string { return env.Getenv(key) }}
	return env
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve() (string, error) {
	return ffmpeg.NewResolver().Resolve()
}

func (defaultFFmpegResolver) ResolvePlayer(ffmpegPath string) string {
	return ffmpeg.NewResolver().ResolvePlayer(ffmpegPath)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.NewVersionChecker().Check(ctx, ffmpegPath)
}

type defaultConfigLoader struct {
	getenv func(string) string
}

func (l defaultConfigLoader) Load() (config.Config, error) {
	return config.LoadFunc(l.getenv)
}

type defaultDecoderFactory struct{}

func (defaultDecoderFactory) NewDecoder(ffmpegPath string, progress io.Writer) audio.Decoder {
	var opts []audio.FFmpegDecoderOption
	if progress != nil {
		opts = append(opts, audio.WithProgress(progress))
	}
	return audio.NewFileDecoder(audio.NewFFmpegDecoder(ffmpegPath, opts...))
}

type defaultTrackSourceFactory struct{}

func (defaultTrackSourceFactory) Open(path, owner, name string) (tracklist.Source, error) {
	src, err := tracklist.Open(path, owner, name)
	if err != nil {
		return nil, err
	}
	return src, nil
}

type defaultMediaFactory struct{}

func (defaultMediaFactory) NewMediaTool(ffmpegPath, ffplayPath, bitrate string) MediaTool {
	return audio.NewFFmpegExtractor(ffmpegPath, audio.WithBitrate(bitrate), audio.WithPlayer(ffplayPath))
}

type defaultTaggerFactory struct{}

func (defaultTaggerFactory) NewTagger() export.Tagger {
	return tag.NewID3Tagger()
}

func (defaultTaggerFactory) NewCoverFetcher() export.CoverFetcher {
	return tag.NewHTTPCoverFetcher()
}

type defaultPublisherFactory struct{}

func (defaultPublisherFactory) NewPublisher(ctx context.Context, cfg config.S3, runID string) (export.Publisher, error) {
	p, err := storage.NewS3Publisher(ctx, storage.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		Prefix:          cfg.Prefix,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}, runID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// lockFileName is created in the output directory for the duration of a run.
const lockFileName = ".tracksplit.lock"

type flockLocker struct{}

func (flockLocker) Lock(dir string) (func() error, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, dir)
	}
	return func() error {
		if err := lock.Unlock(); err != nil {
			return err
		}
		return os.Remove(lock.Path())
	}, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver     = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ DecoderFactory     = (*defaultDecoderFactory)(nil)
	_ TrackSourceFactory = (*defaultTrackSourceFactory)(nil)
	_ MediaFactory       = (*defaultMediaFactory)(nil)
	_ TaggerFactory      = (*defaultTaggerFactory)(nil)
	_ PublisherFactory   = (*defaultPublisherFactory)(nil)
	_ Locker             = (*flockLocker)(nil)
	_ MediaTool          = (*audio.FFmpegExtractor)(nil)
)
