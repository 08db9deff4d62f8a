package tag

import "errors"

// ErrUnsupportedFormat indicates a file type the tagger cannot write.
var ErrUnsupportedFormat = errors.New("tagging not supported for format")

// ErrCoverFetch indicates the cover image could not be downloaded.
var ErrCoverFetch = errors.New("cover fetch failed")
