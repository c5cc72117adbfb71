package fuse

import (
	"hash/fnv"

	"bazil.org/fuse"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

func errorize(name string, err error) error {
	if ecfs.IsNoSuchFileError(err) {
		return fuse.ENOENT
	}

	if ecfs.IsPermissionError(err) {
		return fuse.EPERM
	}

	if err != nil {
		log.Warningf("fuse: %s: %v", name, err)
		return fuse.EIO
	}

	return nil
}

// inodeOf derives a stable inode number from the archive path.
// The kernel only needs it to be consistent between calls.
func inodeOf(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

func logPanic(name string) {
	if err := recover(); err != nil {
		log.Errorf("bug: fuse: %s panicked: %v", name, err)
	}
}
