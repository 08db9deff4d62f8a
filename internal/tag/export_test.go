package tag

// WithMaxBytes exports withMaxBytes for testing.
var WithMaxBytes = withMaxBytes
