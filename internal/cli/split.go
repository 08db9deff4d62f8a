package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/config"
	"github.com/alnah/go-tracksplit/internal/correct"
	"github.com/alnah/go-tracksplit/internal/export"
	"github.com/alnah/go-tracksplit/internal/format"
	"github.com/alnah/go-tracksplit/internal/segment"
	"github.com/alnah/go-tracksplit/internal/track"
	"github.com/alnah/go-tracksplit/internal/tracklist"
)

// defaultCatalogName is looked up next to the source when no catalog is set.
const defaultCatalogName = "tracks.toml"

// splitOptions holds the flags shared by split and plan.
type splitOptions struct {
	tracksPath string
	outputDir  string
	format     string
	bitrate    string
	window     int
	windowSet  bool
	reviewAll  bool
	dryRun     bool
	yes        bool
}

// SplitCmd creates the split command.
// The env parameter provides injectable dependencies for testing.
func SplitCmd(env *Env) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "split <owner> <playlist> <audio-file>",
		Short: "Split a recorded mix into one file per track",
		Long: `Split a continuous recording into one file per track of a playlist.

Track boundaries start from the nominal durations of the track list and are
snapped to the nearest silence. Boundaries without a silence nearby are
shown for review when stdin is a terminal; otherwise the files are kept with
an "(UNVERIFIED) " prefix.

Supported inputs: ` + audio.SupportedInputList() + `
Supported outputs: ` + strings.Join(audio.SupportedOutputFormats(), ", "),
		Example: `  tracksplit split alice "Night Drive" night-drive.flac
  tracksplit split alice "Night Drive" night-drive.flac -t ~/mixes.toml -f mp3 --bitrate 256k
  tracksplit split alice "Night Drive" night-drive.flac --review-all
  tracksplit split alice "Night Drive" night-drive.flac --yes  # never prompt`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.windowSet = cmd.Flags().Changed("window")
			return runSplit(cmd.Context(), env, args[0], args[1], args[2], opts)
		},
	}

	addSegmentFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Export directory (default: <config output-dir>/<playlist> or next to the source)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Export format: "+strings.Join(audio.SupportedOutputFormats(), ", ")+" (default: "+defaultFormat+", the only tagged format)")
	cmd.Flags().StringVar(&opts.bitrate, "bitrate", "", "Bitrate for lossy formats (default "+audio.DefaultBitrate+")")
	cmd.Flags().BoolVar(&opts.reviewAll, "review-all", false, "Review every boundary, not only those without silence")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Plan the boundaries and print them without exporting")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Never prompt; keep unresolved boundaries as UNVERIFIED")

	return cmd
}

// PlanCmd creates the plan command.
func PlanCmd(env *Env) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "plan <owner> <playlist> <audio-file>",
		Short: "Show where a recording would be split",
		Long: `Segment a recording and print the planned boundaries as a table.

Nothing is exported and nothing is asked.`,
		Example: `  tracksplit plan alice "Night Drive" night-drive.flac
  tracksplit plan alice "Night Drive" night-drive.wav --window 40`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.windowSet = cmd.Flags().Changed("window")
			opts.dryRun, opts.yes = true, true
			return runSplit(cmd.Context(), env, args[0], args[1], args[2], opts)
		},
	}

	addSegmentFlags(cmd, &opts)
	return cmd
}

func addSegmentFlags(cmd *cobra.Command, opts *splitOptions) {
	cmd.Flags().StringVarP(&opts.tracksPath, "tracks", "t", "", "Track catalog file (default: config tracks, or "+defaultCatalogName+" next to the source)")
	cmd.Flags().IntVar(&opts.window, "window", audio.DefaultSearchWindow, "Seconds searched on each side of a nominal boundary")
}

// runSplit executes the segmentation pipeline.
// Validation order: file exists -> input format -> config -> output format -> window -> track list
func runSplit(ctx context.Context, env *Env, owner, playlist, sourcePath string, opts splitOptions) error {
	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", audio.ErrFileNotFound, sourcePath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	srcExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(sourcePath), "."))
	if !audio.SupportedInputFormats["."+srcExt] {
		return fmt.Errorf("%w %q (supported: %s)", audio.ErrUnsupportedFormat, srcExt, audio.SupportedInputList())
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(env.Stderr)

	outFormat, err := resolveFormat(opts.format, cfg.Format)
	if err != nil {
		return err
	}

	window := opts.window
	if !opts.windowSet && cfg.SearchWindow > 0 {
		window = cfg.SearchWindow
	}
	if window < 0 {
		return fmt.Errorf("%w: --window must be >= 0, got %d", config.ErrInvalidConfig, window)
	}

	catalog := resolveCatalog(opts.tracksPath, cfg.Tracks, sourcePath)
	tracks, err := loadTracks(ctx, env, catalog, owner, playlist)
	if err != nil {
		return err
	}
	logger.Info("track list loaded", "catalog", catalog, "tracks", len(tracks))

	// === SETUP ===

	ffmpegPath, err := env.FFmpegResolver.Resolve()
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	interactive := !opts.yes && env.IsTerminal()
	ffplayPath := ""
	if interactive {
		ffplayPath = env.FFmpegResolver.ResolvePlayer(ffmpegPath)
		if ffplayPath == "" {
			_, _ = fmt.Fprintln(env.Stderr, "Warning: ffplay not found, previews are disabled")
		}
	}

	bitrate := firstNonEmpty(opts.bitrate, cfg.Bitrate, audio.DefaultBitrate)
	tool := env.MediaFactory.NewMediaTool(ffmpegPath, ffplayPath, bitrate)
	outputDir := config.ResolveOutputDir(opts.outputDir, cfg.OutputDir, sourcePath, track.Sanitize(playlist))

	// === DECODE ===

	_, _ = fmt.Fprintf(env.Stderr, "Decoding %s...\n", filepath.Base(sourcePath))
	started := env.Now()
	buf, err := env.DecoderFactory.NewDecoder(ffmpegPath, env.Stderr).Decode(ctx, sourcePath)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(env.Stderr, "Source duration: %s\n", format.Timestamp(buf.Len()))
	logger.Debug("source decoded", "length_ms", buf.Len(), "elapsed", env.Now().Sub(started))

	// === SEGMENTATION ===

	runID := env.NewRunID()
	coordOpts := []export.Option{
		export.WithOutput(env.Stderr),
		export.WithLogger(logger.With("run", runID)),
		export.WithPlayer(tool),
	}
	plannerOpts := []segment.Option{
		segment.WithOutput(env.Stderr),
		segment.WithLogger(logger.With("run", runID)),
		segment.WithReviewAll(opts.reviewAll && interactive),
	}

	if !opts.dryRun {
		coordOpts, err = withTagging(ctx, env, cfg, runID, outFormat, logger, coordOpts)
		if err != nil {
			return err
		}
	}
	coord := export.New(tool, outputDir, outFormat, coordOpts...)

	if interactive {
		var previewer correct.Previewer
		if tool.CanPlay() {
			previewer = coord.Previewer(sourcePath)
		}
		plannerOpts = append(plannerOpts, segment.WithResolver(correct.New(env.Stdin, env.Stderr, previewer)))
	}

	locator := audio.NewSilenceLocator(audio.WithSearchWindow(window))
	logger.Debug("planning boundaries", "tracks", len(tracks), "window_s", locator.Window())
	plan, err := segment.NewPlanner(locator, plannerOpts...).Plan(ctx, tracks, buf)
	if err != nil {
		return err
	}
	reportPlan(env.Stderr, plan)

	if opts.dryRun {
		_, _ = fmt.Fprintln(env.Stdout, renderPlan(plan))
		return nil
	}

	// === EXPORT ===

	if err := track.CheckBounds(plan.Descriptors, plan.LengthMs); err != nil {
		return err
	}
	if err := config.EnsureOutputDir(outputDir); err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}
	unlock, err := env.Locker.Lock(outputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("failed to release output lock", "dir", outputDir, "error", err)
		}
	}()

	report, err := coord.Finalize(ctx, sourcePath, plan.Descriptors)
	if err != nil {
		return err
	}

	var written int64
	for _, res := range report.Results {
		written += res.Size
	}
	_, _ = fmt.Fprintf(env.Stderr, "Done: %d exported, %d failed in %s (%s, %s)\n",
		report.Exported(), report.Failed(), outputDir, format.Size(written), format.Duration(env.Now().Sub(started)))
	if len(report.Results) > 0 && report.Exported() == 0 {
		return fmt.Errorf("%w: %d track(s) failed", ErrExportFailed, report.Failed())
	}
	return nil
}

// withTagging adds the tagger, cover fetcher and publisher for a real export.
func withTagging(ctx context.Context, env *Env, cfg config.Config, runID, outFormat string, logger *slog.Logger, opts []export.Option) ([]export.Option, error) {
	if outFormat == defaultFormat {
		opts = append(opts,
			export.WithTagger(env.TaggerFactory.NewTagger()),
			export.WithCoverFetcher(env.TaggerFactory.NewCoverFetcher()))
	} else {
		logger.Info("tags are only written to mp3 exports", "format", outFormat)
	}

	if cfg.S3.Enabled() {
		pub, err := env.PublisherFactory.NewPublisher(ctx, cfg.S3, runID)
		if err != nil {
			return nil, fmt.Errorf("setup publishing: %w", err)
		}
		opts = append(opts, export.WithPublisher(pub))
		_, _ = fmt.Fprintf(env.Stderr, "Publishing to s3://%s (run %s)\n", cfg.S3.Bucket, runID)
	}
	return opts, nil
}

// loadTracks opens the catalog and drains the playlist.
func loadTracks(ctx context.Context, env *Env, catalog, owner, playlist string) ([]track.Metadata, error) {
	src, err := env.TrackSourceFactory.Open(catalog, owner, playlist)
	if err != nil {
		return nil, err
	}
	return tracklist.Collect(ctx, src)
}

// reportPlan prints the segmentation summary.
func reportPlan(w io.Writer, plan *segment.Plan) {
	if plan.Exhausted {
		_, _ = fmt.Fprintf(w, "Warning: source ended before the track list, %d track(s) skipped:\n", len(plan.Skipped))
		for _, m := range plan.Skipped {
			_, _ = fmt.Fprintf(w, "  %02d %s\n", m.Position, m.Label())
		}
	}
	if n := plan.Unresolved(); n > 0 {
		_, _ = fmt.Fprintf(w, "Warning: %d boundary(ies) could not be verified and will be marked %q\n",
			n, strings.TrimSpace(track.PrefixUnverified))
	}
	_, _ = fmt.Fprintf(w, "Planned %d track(s) over %s\n", len(plan.Descriptors), format.Timestamp(plan.LengthMs))
}

// defaultFormat is exported when neither the flag nor the config sets one.
// It is the only format that gets tags and cover art.
const defaultFormat = "mp3"

// resolveFormat picks the export extension: flag, then config, then mp3.
func resolveFormat(flag, cfg string) (string, error) {
	f := strings.ToLower(strings.TrimPrefix(firstNonEmpty(flag, cfg), "."))
	if f == "" {
		return defaultFormat, nil
	}
	if !audio.IsSupportedOutput(f) {
		return "", fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedOutput, f, strings.Join(audio.SupportedOutputFormats(), ", "))
	}
	return f, nil
}

// resolveCatalog picks the track catalog: flag, then config, then a
// tracks.toml beside the source.
func resolveCatalog(flag, cfg, sourcePath string) string {
	if p := firstNonEmpty(flag, cfg); p != "" {
		return config.ExpandPath(p)
	}
	return filepath.Join(filepath.Dir(sourcePath), defaultCatalogName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
