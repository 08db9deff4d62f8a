package ffmpeg

import (
	"os"
	"os/exec"
)

// host is what a Resolver needs from the operating system to find binaries.
type host interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
	LookPath(file string) (string, error)
	// IsFile reports whether path names an existing regular file.
	IsFile(path string) bool
}

var _ host = osHost{}

type osHost struct{}

func (osHost) Getenv(key string) string { return os.Getenv(key) }

func (osHost) UserHomeDir() (string, error) { return os.UserHomeDir() }

func (osHost) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osHost) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
