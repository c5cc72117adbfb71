package ecfs

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ListOptions control how much a Backend.List() call will return.
type ListOptions struct {
	// All also includes hidden entries.
	All bool

	// Self lists the entry at the path itself, not its children.
	Self bool

	// Recursive descends into all subdirectories.
	// Use with care, large archive trees are slow to traverse.
	Recursive bool
}

// Entry is a single line of an archive listing.
type Entry struct {
	// Path is the absolute archive path of the entry.
	Path string

	// Size in bytes. Directories report whatever the archive says.
	Size int64

	// Owner and Group as reported by the archive.
	Owner string
	Group string

	// Perms is the raw mode string ("drwxr-x---" and friends).
	Perms string

	// IsDir tells whether this entry is a directory.
	IsDir bool
}

// Backend is the set of operations ecgofs needs from the tape archive.
// Backends receive plain archive paths (including the /TMP prefix for
// temporary storage); scheme prefixes are a backend concern.
type Backend interface {
	// List returns the entries at `path`.
	List(ctx context.Context, path string, opts ListOptions) ([]Entry, error)

	// Copy retrieves the archive file `src` to the local path `dst`.
	// The parent directory of `dst` exists when Copy is called.
	Copy(ctx context.Context, src, dst string) error
}

//////////////

// DirBackend is a Backend that serves a plain local directory as if it was
// the tape archive (useful for writing tests).
type DirBackend struct {
	root string
}

// Owner and group reported for all entries of a DirBackend.
const (
	DirBackendOwner = "ecuser"
	DirBackendGroup = "ecgroup"
)

// NewDirBackend returns a DirBackend rooted at `root`.
func NewDirBackend(root string) *DirBackend {
	return &DirBackend{root: root}
}

func (db *DirBackend) entryFromInfo(archivePath string, info os.FileInfo) Entry {
	return Entry{
		Path:  archivePath,
		Size:  info.Size(),
		Owner: DirBackendOwner,
		Group: DirBackendGroup,
		Perms: info.Mode().String(),
		IsDir: info.IsDir(),
	}
}

func (db *DirBackend) classify(p string, err error) error {
	switch {
	case os.IsNotExist(err):
		return NoSuchFile(p)
	case os.IsPermission(err):
		return PermissionDenied(p)
	default:
		return err
	}
}

// List implements the Backend interface by stat-ing the local tree.
func (db *DirBackend) List(ctx context.Context, p string, opts ListOptions) ([]Entry, error) {
	p = path.Clean("/" + p)
	full := filepath.Join(db.root, filepath.FromSlash(p))

	info, err := os.Stat(full)
	if err != nil {
		return nil, db.classify(p, err)
	}

	if opts.Self || !info.IsDir() {
		return []Entry{db.entryFromInfo(p, info)}, nil
	}

	if opts.Recursive {
		entries := []Entry{}
		err := filepath.Walk(full, func(child string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if child == full {
				return nil
			}

			rel, err := filepath.Rel(db.root, child)
			if err != nil {
				return err
			}

			if !opts.All && strings.HasPrefix(info.Name(), ".") {
				if info.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			entries = append(entries, db.entryFromInfo("/"+filepath.ToSlash(rel), info))
			return nil
		})

		if err != nil {
			return nil, db.classify(p, err)
		}

		sortEntries(entries)
		return entries, nil
	}

	fd, err := os.Open(full)
	if err != nil {
		return nil, db.classify(p, err)
	}

	defer fd.Close()

	infos, err := fd.Readdir(-1)
	if err != nil {
		return nil, db.classify(p, err)
	}

	entries := []Entry{}
	for _, info := range infos {
		if !opts.All && strings.HasPrefix(info.Name(), ".") {
			continue
		}

		entries = append(entries, db.entryFromInfo(path.Join(p, info.Name()), info))
	}

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

// Copy implements the Backend interface by copying from the local tree.
func (db *DirBackend) Copy(ctx context.Context, src, dst string) error {
	src = path.Clean("/" + src)
	srcFd, err := os.Open(filepath.Join(db.root, filepath.FromSlash(src)))
	if err != nil {
		return db.classify(src, err)
	}

	defer srcFd.Close()

	dstFd, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFd, srcFd); err != nil {
		dstFd.Close()
		return err
	}

	return dstFd.Close()
}
