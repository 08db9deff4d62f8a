package export

// TempDirCreator exports tempDirCreator interface for testing.
type TempDirCreator = tempDirCreator

// WithTempDirCreator exports withTempDirCreator for testing.
var WithTempDirCreator = withTempDirCreator

// FileOps exports fileOps interface for testing.
type FileOps = fileOps

// WithFileOps exports withFileOps for testing.
var WithFileOps = withFileOps
