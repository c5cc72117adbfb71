package ecfs

import (
	"io/ioutil"
	"os"
	"testing"
	"time"
)

// WithMockFS runs `fn` with a filesystem over a DirBackend.
// The first argument of `fn` is the filesystem, the second the local
// directory playing the archive. Everything is cleaned up afterwards.
func WithMockFS(t *testing.T, fn func(fs *FS, archiveDir string)) {
	WithMockFSCustom(t, nil, fn)
}

// WithMockFSCustom is WithMockFS with an options hook. The hook sees the
// prepared options (scheme ec, temp cache dir, short fetch delay) and may
// change them before the filesystem is built.
func WithMockFSCustom(t *testing.T, setup func(opts *Options), fn func(fs *FS, archiveDir string)) {
	archiveDir, err := ioutil.TempDir("", "ecgofs-test-archive")
	if err != nil {
		t.Fatalf("failed to create archive dir: %v", err)
	}

	cacheDir, err := ioutil.TempDir("", "ecgofs-test-cache")
	if err != nil {
		t.Fatalf("failed to create cache dir: %v", err)
	}

	defer func() {
		os.RemoveAll(archiveDir)
		os.RemoveAll(cacheDir)
	}()

	opts := DefaultOptions()
	opts.CacheDir = cacheDir
	opts.FetchDelay = 25 * time.Millisecond

	if setup != nil {
		setup(&opts)
	}

	fs, err := NewFilesystem(NewDirBackend(archiveDir), opts)
	if err != nil {
		t.Fatalf("failed to build filesystem: %v", err)
	}

	defer fs.Close()

	fn(fs, archiveDir)
}
