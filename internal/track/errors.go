package track

import "errors"

// ErrInvalidMetadata indicates a catalog entry missing required fields.
var ErrInvalidMetadata = errors.New("invalid track metadata")

// ErrInvalidBounds indicates descriptors that are not ordered and disjoint.
var ErrInvalidBounds = errors.New("invalid track bounds")
