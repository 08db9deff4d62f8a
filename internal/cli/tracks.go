package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// TracksCmd creates the tracks command.
func TracksCmd(env *Env) *cobra.Command {
	var tracksPath string

	cmd := &cobra.Command{
		Use:   "tracks <owner> <playlist>",
		Short: "List the tracks of a playlist",
		Long: `List the tracks of a playlist in export order, with their nominal durations.

The catalog is read from --tracks, then the "tracks" config setting, then
` + defaultCatalogName + ` in the current directory.`,
		Example: `  tracksplit tracks alice "Night Drive"
  tracksplit tracks alice "Night Drive" -t ~/mixes.toml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracks(cmd.Context(), env, args[0], args[1], tracksPath)
		},
	}

	cmd.Flags().StringVarP(&tracksPath, "tracks", "t", "", "Track catalog file")
	return cmd
}

// runTracks prints the resolved track list to stdout.
func runTracks(ctx context.Context, env *Env, owner, playlist, tracksPath string) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}

	catalog := resolveCatalog(tracksPath, cfg.Tracks, defaultCatalogName)
	tracks, err := loadTracks(ctx, env, catalog, owner, playlist)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stdout, "%s by %s\n", playlist, owner)
	_, _ = fmt.Fprintln(env.Stdout, renderTracks(tracks))
	return nil
}
