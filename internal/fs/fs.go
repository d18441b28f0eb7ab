package fs

import (
	"io"
	"os"
	"runtime"
)

// File is a blob file being written.
type File interface {
	io.WriteCloser
	Sync() error
}

// FileSystem is the set of file system calls the local blob store makes.
type FileSystem interface {
	// CreateExclusive creates name for writing. It fails if name exists.
	CreateExclusive(name string) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string) error
	ReadDir(name string) ([]os.DirEntry, error)
	// SyncDir flushes the entries of dir so a completed rename survives a
	// crash.
	SyncDir(dir string) error
}

// LocalFS implements FileSystem with the os package.
type LocalFS struct{}

func (LocalFS) CreateExclusive(name string) (File, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

func (LocalFS) Remove(name string) error             { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (LocalFS) MkdirAll(path string) error           { return os.MkdirAll(path, 0o755) }

func (LocalFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

func (LocalFS) SyncDir(dir string) error {
	// Windows cannot open a directory for syncing.
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Default is the local file system.
var Default FileSystem = LocalFS{}
