package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ReadS16LE exports readS16LE for testing.
var ReadS16LE = readS16LE

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// StreamRunner exports streamRunner interface for testing.
type StreamRunner = streamRunner

// InteractiveRunner exports interactiveRunner interface for testing.
type InteractiveRunner = interactiveRunner

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// WithCommandRunner exports withCommandRunner for testing.
var WithCommandRunner = withCommandRunner

// WithInteractiveRunner exports withInteractiveRunner for testing.
var WithInteractiveRunner = withInteractiveRunner

// WithStreamRunner exports withStreamRunner for testing.
var WithStreamRunner = withStreamRunner

// WithDecoderCommandRunner exports withDecoderCommandRunner for testing.
var WithDecoderCommandRunner = withDecoderCommandRunner

// WithDecoderFileStatter exports withDecoderFileStatter for testing.
var WithDecoderFileStatter = withDecoderFileStatter
