package fuse

import (
	"context"
	"io"
	"sync"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

// Handle is an open File.
type Handle struct {
	mu sync.Mutex
	fd *ecfs.File
}

// Read is called to read a block of data at a certain offset.
func (hd *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	defer logPanic("handle: read")

	log.WithFields(log.Fields{
		"path":   hd.fd.Path(),
		"offset": req.Offset,
		"size":   req.Size,
	}).Debugf("fuse: handle: read")

	n, err := hd.fd.ReadAt(resp.Data[:req.Size], req.Offset)
	if err != nil && err != io.EOF {
		return errorize("handle-read-io", err)
	}

	resp.Data = resp.Data[:n]
	return nil
}

// Write is not supported, the archive is read-only.
func (hd *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	return fuse.EPERM
}

// Release is called to close this handle.
func (hd *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	hd.mu.Lock()
	defer hd.mu.Unlock()
	defer logPanic("handle: release")

	log.Debugf("fuse-release: %v", hd.fd.Path())
	return errorize("handle-release", hd.fd.Close())
}

// Compiler checks to see if we got all the interfaces right:
var _ = fs.HandleReader(&Handle{})
var _ = fs.HandleReleaser(&Handle{})
var _ = fs.HandleWriter(&Handle{})
