package audio

import "errors"

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrUnsupportedFormat indicates a container or codec the tool cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrDecodeFailed indicates the source could not be decoded to PCM.
var ErrDecodeFailed = errors.New("audio decoding failed")

// ErrExtractFailed indicates FFmpeg failed to cut a segment.
var ErrExtractFailed = errors.New("segment extraction failed")

// ErrTranscodeFailed indicates FFmpeg failed to convert a segment.
var ErrTranscodeFailed = errors.New("segment transcoding failed")

// ErrPlayerNotFound indicates no ffplay binary is available for previews.
var ErrPlayerNotFound = errors.New("ffplay not found")
