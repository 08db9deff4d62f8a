package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tracksplit/internal/config"
)

// envKeys maps config keys to their environment fallback.
var envKeys = map[string]string{
	config.KeyOutputDir:    "TRACKSPLIT_OUTPUT_DIR",
	config.KeyFormat:       "TRACKSPLIT_FORMAT",
	config.KeyBitrate:      "TRACKSPLIT_BITRATE",
	config.KeySearchWindow: "TRACKSPLIT_SEARCH_WINDOW",
	config.KeyTracks:       "TRACKSPLIT_TRACKS",
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-tracksplit/config.
Settings missing from the file fall back to environment variables.

Supported settings:
  output-dir     Base directory for exports (env: TRACKSPLIT_OUTPUT_DIR)
  format         Export format: mp3, flac, ogg, wav, m4a (env: TRACKSPLIT_FORMAT)
  bitrate        Bitrate for lossy exports, e.g. 320k (env: TRACKSPLIT_BITRATE)
  search-window  Seconds searched around each boundary (env: TRACKSPLIT_SEARCH_WINDOW)
  tracks         Default track catalog file (env: TRACKSPLIT_TRACKS)`,
		Example: `  tracksplit config set output-dir ~/Music/splits
  tracksplit config set format mp3
  tracksplit config get search-window
  tracksplit config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The output directory is created if it doesn't exist.`,
		Example: `  tracksplit config set output-dir ~/Music/splits
  tracksplit config set bitrate 256k`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  tracksplit config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  tracksplit config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if err := config.ValidateValue(key, value); err != nil {
		return err
	}

	switch key {
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
		value = expanded
	case config.KeyTracks:
		value = config.ExpandPath(value)
	case config.KeyFormat:
		value = strings.ToLower(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w %q (valid keys: %s)", config.ErrUnknownKey, key, strings.Join(config.Keys, ", "))
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(envKeys[key])
	}

	if value != "" {
		_, _ = fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, key := range config.Keys {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(envKeys[key]); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		_, _ = fmt.Fprintln(env.Stdout, "No configuration set.")
		_, _ = fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys {
			_, _ = fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	slices.SortStableFunc(keys, func(a, b string) int { return keyOrder(a) - keyOrder(b) })
	for _, key := range keys {
		_, _ = fmt.Fprintf(env.Stdout, "%s=%s\n", key, data[key])
	}

	if dir, err := config.Dir(); err == nil {
		_, _ = fmt.Fprintf(env.Stderr, "(config file: %s)\n", dir)
	}
	return nil
}

// keyOrder sorts known keys in display order and unknown keys last.
func keyOrder(key string) int {
	if i := slices.Index(config.Keys, key); i >= 0 {
		return i
	}
	return len(config.Keys)
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(config.Keys, key)
}
