package cli

import (
	"bytes"
	"testing"
)

func TestNewEnv_AppliesOptions(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	env := NewEnv(WithStdout(&out), WithStderr(&errOut), WithIsTerminal(func() bool { return true }))

	if env.Stdout != &out || env.Stderr != &errOut {
		t.Error("NewEnv() did not apply writer options")
	}
	if !env.IsTerminal() {
		t.Error("NewEnv() did not apply WithIsTerminal")
	}
	if env.NewRunID() == env.NewRunID() {
		t.Error("NewRunID() returned the same id twice")
	}
}

func TestNewEnv_ConfigReadsGetenv(t *testing.T) {
	// NO t.Parallel() - uses t.Setenv
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TRACKSPLIT_FORMAT", "ogg")

	env := NewEnv(WithGetenv(func(key string) string {
		if key == "TRACKSPLIT_FORMAT" {
			return "wav"
		}
		return ""
	}))

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != "wav" {
		t.Errorf("Format = %q, want wav from the injected getenv", cfg.Format)
	}
}
