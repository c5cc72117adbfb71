// Package cache manages the local staging area for retrieved archive files.
//
// Retrieved files are laid out below a single cache root, mirroring the
// archive paths. The cache root usually lives on a site scratch filesystem
// that is scrubbed regularly; already staged files therefore get their
// mtime bumped on access so the scrubber leaves them alone.
package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var (
	// ErrNoCacheDir is returned when no cache directory could be resolved.
	ErrNoCacheDir = errors.New("No cache directory specified")
)

// DefaultPermissions is applied to staged files and their parent
// directories. The setgid and sticky bits keep group sharing intact on
// common scratch setups.
const DefaultPermissions = 0o3777

// InternalDirName is the directory below the cache root where ecgofs
// keeps its own state (like the persistent listing cache). It holds no
// staged files and is excluded from Usage and Clean.
const InternalDirName = ".ecgofs"

// ResolveDir finds the cache directory to use.
// An explicitly configured directory wins, then $EC_CACHE,
// then $SCRATCH as a last resort (with a warning).
func ResolveDir(explicit string) (string, error) {
	if explicit != "" {
		return homedir.Expand(explicit)
	}

	if dir := os.Getenv("EC_CACHE"); dir != "" {
		return dir, nil
	}

	if dir := os.Getenv("SCRATCH"); dir != "" {
		log.Warningf(
			"neither the cache.root config value nor EC_CACHE is set; falling back to $SCRATCH (%s)",
			dir,
		)
		return dir, nil
	}

	return "", ErrNoCacheDir
}

// Cache is the staging area for one cache root.
type Cache struct {
	root  string
	perms os.FileMode
	touch bool
}

// New creates the cache root (if needed) and returns a Cache for it.
// `perms` is applied to everything the cache creates; `touch` enables
// mtime bumping of already staged files.
func New(root string, perms os.FileMode, touch bool) (*Cache, error) {
	root, err := homedir.Expand(root)
	if err != nil {
		return nil, err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, e.Wrap(err, "failed to create cache root")
	}

	return &Cache{
		root:  root,
		perms: perms,
		touch: touch,
	}, nil
}

// PermMode converts an octal permission value (possibly including setuid,
// setgid and sticky bits) to the os.FileMode representation.
func PermMode(perm uint32) os.FileMode {
	mode := os.FileMode(perm & 0777)
	if perm&0o4000 != 0 {
		mode |= os.ModeSetuid
	}

	if perm&0o2000 != 0 {
		mode |= os.ModeSetgid
	}

	if perm&0o1000 != 0 {
		mode |= os.ModeSticky
	}

	return mode
}

// Root returns the absolute cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// LocalPath maps an absolute archive path to its staging location.
func (c *Cache) LocalPath(archivePath string) string {
	trimmed := strings.TrimLeft(archivePath, "/")
	return filepath.Join(c.root, filepath.FromSlash(trimmed))
}

// Has tells whether `archivePath` is already staged.
func (c *Cache) Has(archivePath string) bool {
	info, err := os.Stat(c.LocalPath(archivePath))
	return err == nil && !info.IsDir()
}

// Touch bumps the mtime of an already staged file, if touching is enabled.
func (c *Cache) Touch(local string) error {
	if !c.touch {
		return nil
	}

	now := time.Now()
	return os.Chtimes(local, now, now)
}

// EnsureParent creates the parent directory of `local` with the
// configured permissions.
func (c *Cache) EnsureParent(local string) error {
	parent := filepath.Dir(local)
	if err := os.MkdirAll(parent, c.perms); err != nil {
		return e.Wrap(err, "failed to create staging dir")
	}

	// MkdirAll is subject to the umask; the setgid/sticky bits need an
	// explicit chmod afterwards.
	return os.Chmod(parent, c.perms)
}

// Finalize applies the configured permissions to a freshly staged file.
func (c *Cache) Finalize(local string) error {
	return os.Chmod(local, c.perms)
}

// Usage describes the current state of the staging area.
type Usage struct {
	// Files is the number of staged files.
	Files int

	// Bytes is the total size of all staged files.
	Bytes uint64

	// Free is the number of bytes left on the cache volume.
	Free uint64
}

// Usage walks the cache and reports file count, total size and free space.
func (c *Cache) Usage() (*Usage, error) {
	usage := &Usage{}
	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == InternalDirName {
				return filepath.SkipDir
			}

			return nil
		}

		usage.Files++
		usage.Bytes += uint64(info.Size())
		return nil
	})

	if err != nil {
		return nil, err
	}

	stat := unix.Statfs_t{}
	if err := unix.Statfs(c.root, &stat); err != nil {
		return nil, e.Wrap(err, "failed to statfs cache root")
	}

	usage.Free = stat.Bavail * uint64(stat.Bsize)
	return usage, nil
}

// Clean removes staged files that were not accessed for `olderThan`.
// It returns the number of removed files. Directories are left in place.
func (c *Cache) Clean(olderThan time.Duration) (int, error) {
	deadline := time.Now().Add(-olderThan)
	removed := 0

	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == InternalDirName {
				return filepath.SkipDir
			}

			return nil
		}

		if info.ModTime().After(deadline) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			return err
		}

		log.Debugf("cache clean: removed %s", path)
		removed++
		return nil
	})

	if err != nil {
		return removed, err
	}

	return removed, nil
}
