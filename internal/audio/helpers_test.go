package audio_test

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/alnah/go-tracksplit/internal/audio"
)

// tone builds a 1kHz mono buffer, one sample per millisecond, where every
// sample is loud except inside the given [start, end) silent ranges.
func tone(lengthMs int, silences ...[2]int) *audio.PCMBuffer {
	samples := make([]int, lengthMs)
	for i := range samples {
		samples[i] = 8000
	}
	for _, s := range silences {
		for i := max(s[0], 0); i < min(s[1], lengthMs); i++ {
			samples[i] = 0
		}
	}
	return audio.NewPCMBuffer(1000, 1, 16, samples)
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockCommandRunner struct {
	mu     sync.Mutex
	calls  [][]string
	output []byte
	err    error
}

func (m *mockCommandRunner) CombinedOutput(_ context.Context, name string, args []string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
	return m.output, m.err
}

func (m *mockCommandRunner) lastCall() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

type mockStreamRunner struct {
	data []byte
	err  error
	args []string
}

func (m *mockStreamRunner) Stream(_ context.Context, _ string, args []string, w io.Writer) error {
	m.args = args
	if len(m.data) > 0 {
		if _, err := w.Write(m.data); err != nil {
			return err
		}
	}
	return m.err
}

type mockInteractiveRunner struct {
	name string
	args []string
	err  error
}

func (m *mockInteractiveRunner) Run(_ context.Context, name string, args []string) error {
	m.name = name
	m.args = args
	return m.err
}

type mockFileStatter struct {
	err error
}

func (m mockFileStatter) Stat(string) (os.FileInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return fakeFileInfo{}, nil
}

type fakeFileInfo struct{}

func (fakeFileInfo) Name() string       { return "source.mp3" }
func (fakeFileInfo) Size() int64        { return 0 }
func (fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fakeFileInfo) IsDir() bool        { return false }
func (fakeFileInfo) Sys() any           { return nil }

func contains(args []string, want ...string) bool {
outer:
	for i := range args {
		for j, w := range want {
			if i+j >= len(args) || args[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
