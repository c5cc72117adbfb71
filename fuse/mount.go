package fuse

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

// MountOptions defines all possible knobs you can turn for a mount.
// The zero value are the default options.
type MountOptions struct {
	// Root determines what archive directory becomes the mount root.
	Root string
}

// Mount represents a fuse endpoint on the filesystem.
// It is used as top-level API to control an archive fuse mount.
type Mount struct {
	Dir string

	filesys *Filesystem
	closed  bool
	done    chan struct{}
	errors  chan error
	conn    *fuse.Conn
	server  *fs.Server
	options MountOptions
}

// NewMount mounts a fuse endpoint at `mountpoint` serving data from `ecFS`.
func NewMount(ecFS *ecfs.FS, mountpoint string, opts MountOptions) (*Mount, error) {
	mountOptions := []fuse.MountOption{
		fuse.FSName("ecgofs"),
		fuse.Subtype("ecgofs"),
		fuse.AllowNonEmptyMount(),
		fuse.ReadOnly(),
	}

	conn, err := fuse.Mount(mountpoint, mountOptions...)
	if err != nil {
		return nil, err
	}

	if opts.Root == "" {
		opts.Root = "/"
	}

	if opts.Root != "/" {
		info, err := ecFS.Stat(context.Background(), opts.Root)
		if err != nil {
			return nil, e.Wrap(err, "failed to lookup root node of mount")
		}

		if !info.IsDir {
			return nil, e.Errorf("%s is not a directory", opts.Root)
		}
	}

	filesys := &Filesystem{fs: ecFS, root: opts.Root}
	mnt := &Mount{
		conn:    conn,
		server:  fs.New(conn, nil),
		filesys: filesys,
		Dir:     mountpoint,
		done:    make(chan struct{}),
		errors:  make(chan error),
		options: opts,
	}

	go func() {
		log.Debugf("serving fuse mount at %v", mountpoint)
		mnt.errors <- mnt.server.Serve(filesys)
		close(mnt.done)
		log.Debugf("stopped serving fuse at %v", mountpoint)
	}()

	select {
	case <-mnt.conn.Ready:
		if err := mnt.conn.MountError; err != nil {
			return nil, err
		}
	case err = <-mnt.errors:
		// Serve quit early
		if err != nil {
			return nil, err
		}
		return nil, errors.New("Serve exited early")
	}

	return mnt, nil
}

func lazyUnmount(dir string) error {
	cmd := exec.Command("fusermount", "-u", "-z", dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			output = bytes.TrimRight(output, "\n")
			msg := err.Error() + ": " + string(output)
			err = errors.New(msg)
		}
		return err
	}
	return nil
}

// Close will wait until all I/O operations are done and unmount the fuse
// mount again.
func (m *Mount) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	log.Infof("unmounting fuse mount at %v (this might take a bit)", m.Dir)

	couldUnmount := false
	waitTimeout := 1 * time.Second

	// Attempt unmounting several times:
	for tries := 0; tries < 10; tries++ {
		if err := fuse.Unmount(m.Dir); err != nil {
			log.Debugf("failed to graceful unmount: %v", err)
			time.Sleep(250 * time.Millisecond)
			continue
		}

		couldUnmount = true
		waitTimeout = 5 * time.Second
		break
	}

	if !couldUnmount {
		log.Warn("cant properly unmount; are there still procesess using the mount?")
		log.Warn("attempting lazy umount (you might leak resources!)")
		if err := lazyUnmount(m.Dir); err != nil {
			log.Debugf("lazy unmount failed: %v", err)
		}
	}

	// Be sure to drain the error channel:
	select {
	case err := <-m.errors:
		if err != nil {
			log.Warningf("fuse returned an error: %v", err)
		}
	case <-time.NewTimer(waitTimeout).C:
		// blocking due to fuse freeze.
	}

	select {
	case <-m.done:
		log.Debugf("gracefully shutting down")
	case <-time.NewTimer(waitTimeout).C:
		// success or blocking due to fuse freeze.
	}

	// If we could not unmount, schedule closing in the background.
	// This might be leaky, since Close might not ever return.
	// But usually we unmount on program exit anyways...
	if couldUnmount {
		if err := m.conn.Close(); err != nil {
			return err
		}
	} else {
		go m.conn.Close()
	}

	return nil
}
