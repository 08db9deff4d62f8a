package tracklist

import "errors"

// ErrPlaylistNotFound indicates no playlist matches the owner and name.
var ErrPlaylistNotFound = errors.New("playlist not found")

// ErrInvalidTrackList indicates a catalog that cannot be used for splitting.
var ErrInvalidTrackList = errors.New("invalid track list")
