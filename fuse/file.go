package fuse

import (
	"context"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	log "github.com/sirupsen/logrus"
)

// File is a single file on the archive side.
type File struct {
	path string
	size int64
	fsys *Filesystem
}

// Attr is called to get the stat(2) attributes of the file.
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = inodeOf(f.path)
	a.Mode = 0444
	a.Size = uint64(f.size)
	return nil
}

// Open stages the file and returns a read handle.
// The retrieval itself is lazy, the first Read pays for it.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	defer logPanic("file: open")

	if !req.Flags.IsReadOnly() {
		return nil, fuse.EPERM
	}

	log.Debugf("fuse-open: %s", f.path)
	fd, err := f.fsys.fs.Open(ctx, f.path)
	if err != nil {
		return nil, errorize("file-open", err)
	}

	return &Handle{fd: fd}, nil
}

// Setattr is not supported, the archive is read-only.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	return fuse.EPERM
}
