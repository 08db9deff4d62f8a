package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Config keys.
const (
	KeyOutputDir    = "output-dir"
	KeyFormat       = "format"
	KeyBitrate      = "bitrate"
	KeySearchWindow = "search-window"
	KeyTracks       = "tracks"
)

// Keys lists every key accepted by the config file, in display order.
var Keys = []string{KeyOutputDir, KeyFormat, KeyBitrate, KeySearchWindow, KeyTracks}

// ErrInvalidConfig indicates a value that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Sentinel errors for config handling.
var (
	ErrUnknownKey    = errors.New("unknown config key")
	ErrInvalidKey    = errors.New("invalid config key")
	ErrInvalidSyntax = errors.New("invalid config syntax")
	ErrNotDirectory  = errors.New("path is not a directory")
	ErrNotWritable   = errors.New("directory is not writable")
)

// Config holds user configuration loaded from ~/.config/go-tracksplit/config,
// with environment variables filling anything the file leaves unset.
type Config struct {
	OutputDir    string `env:"TRACKSPLIT_OUTPUT_DIR"`
	Format       string `env:"TRACKSPLIT_FORMAT" validate:"omitempty,oneof=mp3 flac ogg wav m4a"`
	Bitrate      string `env:"TRACKSPLIT_BITRATE" validate:"omitempty,bitrate"`
	SearchWindow int    `env:"TRACKSPLIT_SEARCH_WINDOW" validate:"gte=0,lte=600"`
	Tracks       string `env:"TRACKSPLIT_TRACKS"`

	LogLevel  string `env:"TRACKSPLIT_LOG_LEVEL, default=warn" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"TRACKSPLIT_LOG_FORMAT, default=text" validate:"oneof=text json"`

	S3 S3 `env:", prefix=TRACKSPLIT_S3_"`
}

// S3 holds optional publishing settings. Publishing is on when both
// Bucket and Region are set.
type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION"`
	Endpoint        string `env:"ENDPOINT" validate:"omitempty,url"`
	Prefix          string `env:"PREFIX"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Enabled reports whether S3 publishing is configured.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.Region != ""
}

var bitrateRe = regexp.MustCompile(`^[1-9][0-9]{1,3}k$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bitrate", func(fl validator.FieldLevel) bool {
		return bitrateRe.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks every field and reports the first problems found.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v (%s)", fe.Field(), fe.Value(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-tracksplit.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-tracksplit"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-tracksplit"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// A missing file is not an error.
func Load() (Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

// LoadFunc is Load with environment fallbacks read through getenv.
func LoadFunc(getenv func(string) string) (Config, error) {
	return load(context.Background(), getenvLookuper(getenv))
}

// getenvLookuper treats an empty value as unset, like the config file does.
type getenvLookuper func(string) string

var _ envconfig.Lookuper = getenvLookuper(nil)

func (f getenvLookuper) Lookup(key string) (string, bool) {
	v := f(key)
	return v, v != ""
}

func load(ctx context.Context, env envconfig.Lookuper) (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	if data, err := parseFile(p); err == nil {
		if err := cfg.apply(data); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	// Environment only fills fields the file left at their zero value.
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: env}); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// apply copies file values into cfg. Unknown keys are ignored so older
// binaries keep reading newer files.
func (c *Config) apply(data map[string]string) error {
	c.OutputDir = data[KeyOutputDir]
	c.Format = strings.ToLower(data[KeyFormat])
	c.Bitrate = data[KeyBitrate]
	c.Tracks = data[KeyTracks]
	if v := data[KeySearchWindow]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, KeySearchWindow, v)
		}
		c.SearchWindow = n
	}
	return nil
}

// ValidateValue checks a single key=value before it is saved.
func ValidateValue(key, value string) error {
	var c Config
	switch key {
	case KeyOutputDir, KeyTracks:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidConfig, key)
		}
		return nil
	case KeyFormat, KeyBitrate, KeySearchWindow:
		if err := c.apply(map[string]string{key: value}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	c.LogLevel, c.LogFormat = "warn", "text"
	return c.Validate()
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w at line %d: %q", ErrInvalidSyntax, lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: value for %s spans several lines", ErrInvalidConfig, key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map in Keys order, then any unknown keys.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	written := make(map[string]bool, len(data))
	for _, key := range Keys {
		if value, ok := data[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			written[key] = true
		}
	}
	for key, value := range data {
		if written[key] {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputDir picks the export directory: the flag, then the config
// value, then a folder named after the playlist next to the source file.
func ResolveOutputDir(flagDir, cfgDir, sourcePath, playlist string) string {
	switch {
	case flagDir != "":
		return filepath.Clean(ExpandPath(flagDir))
	case cfgDir != "":
		return filepath.Clean(filepath.Join(ExpandPath(cfgDir), playlist))
	default:
		return filepath.Join(filepath.Dir(sourcePath), playlist)
	}
}

// EnsureOutputDir creates d if needed and checks that it is a writable directory.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Check if writable by attempting to create a temp file.
	testFile := filepath.Join(d, ".go-tracksplit-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	_ = os.Remove(testFile) // Best effort cleanup, ignore error

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// NewLogger creates a structured logger writing to w.
// LogFormat "json" selects JSON output, anything else human-readable text.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
