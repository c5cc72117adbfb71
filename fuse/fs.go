// Package fuse exposes the archive as a read-only FUSE mount.
// There are three different structs in the FUSE API:
//
//     - fuse.Node  : A file or a directory (depending on it's type)
//     - fuse.FS    : The filesystem. Used to find out the root node.
//     - fuse.Handle: An open file.
//
// This implementation offers File (a fuse.Node), Dir (fuse.Node),
// Handle (fuse.Handle) and Filesystem (fuse.FS). All mutating
// operations answer EROFS; the archive cannot be written through here.
package fuse

import (
	"bazil.org/fuse/fs"

	"github.com/observingclouds/ecgofs/ecfs"
)

// Filesystem is the entry struct passed to the fuse server.
type Filesystem struct {
	fs   *ecfs.FS
	root string
}

// Root returns the directory node of the mount root.
func (fsys *Filesystem) Root() (fs.Node, error) {
	return &Dir{path: fsys.root, fsys: fsys}, nil
}
