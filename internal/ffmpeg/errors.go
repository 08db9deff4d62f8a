package ffmpeg

import "errors"

// ErrNotFound indicates ffmpeg could not be located.
var ErrNotFound = errors.New("ffmpeg not found")
