package ffmpeg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// Environment variables that pin the binaries.
const (
	envFFmpegPath = "FFMPEG_PATH"
	envFFplayPath = "FFPLAY_PATH"
)

const binaryExtWindows = ".exe"

// Resolver finds the ffmpeg and ffplay binaries.
type Resolver struct {
	host   host
	stderr io.Writer
	goos   string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHost sets the environment, home directory and file checks.
func WithHost(h host) ResolverOption {
	return func(r *Resolver) { r.host = h }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) ResolverOption {
	return func(r *Resolver) { r.stderr = w }
}

// WithPlatform sets the target OS (for testing cross-platform behavior).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		host:   osHost{},
		stderr: os.Stderr,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. ~/.go-tracksplit/bin/ffmpeg
//  3. System PATH
func (r *Resolver) Resolve() (string, error) {
	if envPath := r.host.Getenv(envFFmpegPath); envPath != "" {
		if !r.host.IsFile(envPath) {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if p, ok := r.installed("ffmpeg"); ok {
		return p, nil
	}

	if p, err := r.host.LookPath(r.binary("ffmpeg")); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w\n\n%s", ErrNotFound, r.manualInstallInstructions())
}

// ResolvePlayer finds ffplay for previews. It looks at FFPLAY_PATH, then
// next to ffmpegPath, then the install directory and PATH. An empty result
// means previews are unavailable, which is not an error.
func (r *Resolver) ResolvePlayer(ffmpegPath string) string {
	if envPath := r.host.Getenv(envFFplayPath); envPath != "" {
		if r.host.IsFile(envPath) {
			return envPath
		}
		_, _ = fmt.Fprintf(r.stderr, "Warning: %s is set to %q but binary not found\n", envFFplayPath, envPath)
	}

	if ffmpegPath != "" {
		sibling := filepath.Join(filepath.Dir(ffmpegPath), r.binary("ffplay"))
		if r.host.IsFile(sibling) {
			return sibling
		}
	}

	if p, ok := r.installed("ffplay"); ok {
		return p
	}

	if p, err := r.host.LookPath(r.binary("ffplay")); err == nil {
		return p
	}
	return ""
}

// installed reports whether name exists in ~/.go-tracksplit/bin.
func (r *Resolver) installed(name string) (string, bool) {
	home, err := r.host.UserHomeDir()
	if err != nil {
		return "", false
	}
	p := filepath.Join(home, ".go-tracksplit", "bin", r.binary(name))
	if !r.host.IsFile(p) {
		return "", false
	}
	return p, true
}

func (r *Resolver) binary(name string) string {
	if r.goos == "windows" {
		return name + binaryExtWindows
	}
	return name
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg:
  winget install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `To install FFmpeg, download it from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}
