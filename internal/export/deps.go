package export

import "os"

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileOps moves, inspects and removes files.
type fileOps interface {
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	RemoveAll(path string) error
}

// --- Default implementations using real OS functions ---

type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

type osFileOps struct{}

func (osFileOps) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (osFileOps) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osFileOps) RemoveAll(path string) error { return os.RemoveAll(path) }
