package fuse

import (
	"context"
	"os"
	"path"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

// Dir is a directory on the archive side.
type Dir struct {
	path string
	fsys *Filesystem
}

// Attr is called to get the stat(2) attributes of a directory.
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = inodeOf(d.path)
	a.Mode = os.ModeDir | 0555
	return nil
}

// Lookup is called to lookup a direct child of the directory.
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	defer logPanic("dir: lookup")

	childPath := path.Join(d.path, name)
	info, err := d.fsys.fs.Stat(ctx, childPath)
	if err != nil {
		if !ecfs.IsNoSuchFileError(err) {
			log.Debugf("fuse: lookup of %s failed: %v", childPath, err)
		}
		return nil, errorize("dir-lookup", err)
	}

	if info.IsDir {
		return &Dir{path: childPath, fsys: d.fsys}, nil
	}

	return &File{path: childPath, size: info.Size, fsys: d.fsys}, nil
}

// Mkdir is not supported, the archive is read-only.
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	return nil, fuse.EPERM
}

// Create is not supported, the archive is read-only.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	return nil, nil, fuse.EPERM
}

// Remove is not supported, the archive is read-only.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	return fuse.EPERM
}

// ReadDirAll returns all entries of the directory.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	defer logPanic("dir: readdirall")

	entries, err := d.fsys.fs.Ls(ctx, d.path, ecfs.LsOptions{})
	if err != nil {
		return nil, errorize("dir-readdirall", err)
	}

	fuseEnts := make([]fuse.Dirent, 0, len(entries))
	for _, entry := range entries {
		childType := fuse.DT_File
		if entry.IsDir {
			childType = fuse.DT_Dir
		}

		fuseEnts = append(fuseEnts, fuse.Dirent{
			Inode: inodeOf(entry.Path),
			Type:  childType,
			Name:  path.Base(entry.Path),
		})
	}

	return fuseEnts, nil
}
