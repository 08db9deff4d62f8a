package correct

import "errors"

// ErrAborted indicates the operator ended input or cancelled the run.
var ErrAborted = errors.New("correction aborted")
