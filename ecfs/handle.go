package ecfs

import (
	"os"
	"sync"
)

// File is a read-only handle to an archive file.
//
// Handles are lazy: as long as the backing file was not staged yet, the
// handle only remembers its pending retrieval. The first operation that
// needs bytes blocks until the retrieval batch went through.
type File struct {
	mu sync.Mutex

	path  string
	local string
	job   *fetchJob
	fd    *os.File
}

// force makes sure the handle is backed by a staged file.
func (f *File) force() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd != nil {
		return nil
	}

	if f.job != nil {
		if err := f.job.Wait(); err != nil {
			return err
		}

		f.job = nil
	}

	fd, err := os.Open(f.local)
	if err != nil {
		return err
	}

	f.fd = fd
	return nil
}

// Path returns the archive path this handle was opened for.
func (f *File) Path() string {
	return f.path
}

// Name returns the local file once staged, the archive path before that.
func (f *File) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd != nil {
		return f.local
	}

	return f.path
}

// LocalPath waits for the staging to finish and returns the local file.
// Useful to hand the data to tools that want a real path.
func (f *File) LocalPath() (string, error) {
	if err := f.force(); err != nil {
		return "", err
	}

	return f.local, nil
}

func (f *File) Read(buf []byte) (int, error) {
	if err := f.force(); err != nil {
		return 0, err
	}

	return f.fd.Read(buf)
}

func (f *File) ReadAt(buf []byte, off int64) (int, error) {
	if err := f.force(); err != nil {
		return 0, err
	}

	return f.fd.ReadAt(buf, off)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.force(); err != nil {
		return 0, err
	}

	return f.fd.Seek(offset, whence)
}

// Stat reports the staged file, i.e. size and mtime of the local copy.
func (f *File) Stat() (os.FileInfo, error) {
	if err := f.force(); err != nil {
		return nil, err
	}

	return f.fd.Stat()
}

// Write is not supported, the archive is read-only.
func (f *File) Write(buf []byte) (int, error) {
	return 0, ErrReadOnly
}

// WriteAt is not supported, the archive is read-only.
func (f *File) WriteAt(buf []byte, off int64) (int, error) {
	return 0, ErrReadOnly
}

// Truncate is not supported, the archive is read-only.
func (f *File) Truncate(size int64) error {
	return ErrReadOnly
}

// Close closes the staged file, if the handle ever got that far.
// A pending retrieval is left alone; the rest of its batch still runs.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd == nil {
		return nil
	}

	err := f.fd.Close()
	f.fd = nil
	f.job = nil
	return err
}
