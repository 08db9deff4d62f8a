package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrUnsupportedOutput indicates an export format ffmpeg is not set up to write.
	ErrUnsupportedOutput = errors.New("unsupported output format")

	// ErrOutputLocked indicates another run holds the output directory.
	ErrOutputLocked = errors.New("output directory is locked by another run")

	// ErrExportFailed indicates not a single track could be exported.
	ErrExportFailed = errors.New("no track could be exported")
)
