// Package ecfs implements a read-only filesystem view onto the ECFS tape
// archive. Listings are answered by the archive (and memoized), file
// contents are staged to a local cache directory before they are opened.
package ecfs

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/cache"
	"github.com/observingclouds/ecgofs/ecfs/lscache"
)

// Schemes understood by this filesystem. The ectmp scheme addresses the
// archive's temporary storage, which lives below /TMP on the archive side.
const (
	SchemeEC    = "ec"
	SchemeECTmp = "ectmp"
)

const tmpPrefix = "/TMP"

// StatInfo describes a single archive entry.
type StatInfo struct {
	Path  string
	Size  int64
	Owner string
	Group string
	IsDir bool
}

// LsOptions control the behaviour of FS.Ls().
type LsOptions struct {
	// All includes hidden entries.
	All bool

	// Recursive descends into subdirectories. Only recursive listings
	// populate the listing cache; partial trees are never cached.
	Recursive bool
}

// Options for NewFilesystem. Use DefaultOptions() as a starting point.
type Options struct {
	// Scheme is either "ec" or "ectmp".
	Scheme string

	// CacheDir is the staging directory. When empty, it is resolved
	// from $EC_CACHE (or $SCRATCH as a warned-about fallback).
	CacheDir string

	// Permissions (octal, including setgid/sticky bits) for staged
	// files and directories.
	Permissions uint32

	// Touch bumps the mtime of already staged files on access.
	Touch bool

	// Override forces re-retrieval even when a file is already staged.
	Override bool

	// FetchDelay is the coalescing window for retrieval batches.
	FetchDelay time.Duration

	// Listings is the listing cache store. Defaults to an in-memory store.
	Listings lscache.Store
}

// DefaultOptions returns the options matching the documented defaults.
func DefaultOptions() Options {
	return Options{
		Scheme:      SchemeEC,
		Permissions: cache.DefaultPermissions,
		Touch:       true,
		FetchDelay:  DefaultFetchDelay,
	}
}

// FS is the central API entry for everything related to archive paths.
// All operations are read-only; the archive is never modified.
type FS struct {
	mu sync.Mutex

	scheme   string
	bk       Backend
	cache    *cache.Cache
	listings lscache.Store
	fetcher  *fetcher
	override bool
}

// NewFilesystem builds a filesystem over `bk` according to `opts`.
func NewFilesystem(bk Backend, opts Options) (*FS, error) {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = SchemeEC
	}

	if scheme != SchemeEC && scheme != SchemeECTmp {
		return nil, ErrNoSuchScheme
	}

	cacheDir, err := cache.ResolveDir(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	perms := opts.Permissions
	if perms == 0 {
		perms = cache.DefaultPermissions
	}

	c, err := cache.New(cacheDir, cache.PermMode(perms), opts.Touch)
	if err != nil {
		return nil, err
	}

	listings := opts.Listings
	if listings == nil {
		listings = lscache.NewMemoryStore()
	}

	return &FS{
		scheme:   scheme,
		bk:       bk,
		cache:    c,
		listings: listings,
		fetcher:  newFetcher(bk, c, opts.FetchDelay),
		override: opts.Override,
	}, nil
}

// Scheme returns the scheme this filesystem was built for.
func (fs *FS) Scheme() string {
	return fs.scheme
}

// Cache returns the staging cache of this filesystem.
func (fs *FS) Cache() *cache.Cache {
	return fs.cache
}

// Close releases the listing cache. Staged files stay around.
func (fs *FS) Close() error {
	return fs.listings.Close()
}

// archivePath maps a user path to the path the archive sees.
func (fs *FS) archivePath(p string) string {
	p = path.Clean("/" + p)
	if fs.scheme == SchemeECTmp {
		return tmpPrefix + p
	}

	return p
}

// userPath undoes archivePath for paths reported by the backend.
func (fs *FS) userPath(archive string) string {
	if fs.scheme == SchemeECTmp {
		return path.Clean("/" + strings.TrimPrefix(archive, tmpPrefix))
	}

	return archive
}

func toStatInfo(entry Entry) StatInfo {
	return StatInfo{
		Path:  entry.Path,
		Size:  entry.Size,
		Owner: entry.Owner,
		Group: entry.Group,
		IsDir: entry.IsDir,
	}
}

func toStatInfos(entries []Entry) []StatInfo {
	infos := make([]StatInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, toStatInfo(entry))
	}

	return infos
}

// cachedListing answers a listing from the cache, if possible.
func (fs *FS) cachedListing(p string, recursive bool) ([]Entry, bool) {
	if !recursive {
		data, err := fs.listings.Get(p)
		if err != nil {
			return nil, false
		}

		entries := []Entry{}
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Warningf("dropping unreadable listing cache entry for %s: %v", p, err)
			fs.listings.Invalidate(p)
			return nil, false
		}

		return entries, true
	}

	keys, err := fs.listings.Keys(p)
	if err != nil {
		return nil, false
	}

	childPrefix := p + "/"
	if p == "/" {
		childPrefix = "/"
	}

	entries := []Entry{}
	found := false
	for _, key := range keys {
		// Keys() matches raw prefixes; /arch/ab is no child of /arch/a.
		if key != p && !strings.HasPrefix(key, childPrefix) {
			continue
		}

		data, err := fs.listings.Get(key)
		if err != nil {
			continue
		}

		group := []Entry{}
		if err := json.Unmarshal(data, &group); err != nil {
			continue
		}

		entries = append(entries, group...)
		found = true
	}

	return entries, found
}

// rememberListing stores a recursive listing, grouped by directory.
func (fs *FS) rememberListing(entries []Entry) {
	groups := make(map[string][]Entry)
	for _, entry := range entries {
		dir := path.Dir(entry.Path)
		groups[dir] = append(groups[dir], entry)
	}

	for dir, group := range groups {
		data, err := json.Marshal(group)
		if err != nil {
			log.Warningf("failed to serialize listing of %s: %v", dir, err)
			continue
		}

		if err := fs.listings.Put(dir, data); err != nil {
			log.Warningf("failed to cache listing of %s: %v", dir, err)
		}
	}
}

// Ls lists the entries at `p`.
func (fs *FS) Ls(ctx context.Context, p string, opts LsOptions) ([]StatInfo, error) {
	p = path.Clean("/" + p)

	fs.mu.Lock()
	entries, ok := fs.cachedListing(p, opts.Recursive)
	fs.mu.Unlock()

	if ok {
		return toStatInfos(entries), nil
	}

	entries, err := fs.bk.List(ctx, fs.archivePath(p), ListOptions{
		All:       opts.All,
		Recursive: opts.Recursive,
	})

	if err != nil {
		return nil, err
	}

	for idx := range entries {
		entries[idx].Path = fs.userPath(entries[idx].Path)
	}

	if opts.Recursive {
		// Only recursive listings go to the cache: they are the only
		// ones that are guaranteed to cover whole subtrees.
		fs.mu.Lock()
		fs.rememberListing(entries)
		fs.mu.Unlock()
	}

	return toStatInfos(entries), nil
}

// Stat returns information about the entry at `p` itself.
func (fs *FS) Stat(ctx context.Context, p string) (*StatInfo, error) {
	p = path.Clean("/" + p)
	entries, err := fs.bk.List(ctx, fs.archivePath(p), ListOptions{Self: true})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, NoSuchFile(p)
	}

	info := toStatInfo(entries[0])
	info.Path = p
	return &info, nil
}

// Exists tells whether there is an entry at `p`.
// Any listing failure counts as "does not exist".
func (fs *FS) Exists(ctx context.Context, p string) bool {
	_, err := fs.Stat(ctx, p)
	return err == nil
}

// Owner returns the archive-side owner of the entry at `p`.
func (fs *FS) Owner(ctx context.Context, p string) (string, error) {
	info, err := fs.Stat(ctx, p)
	if err != nil {
		return "", err
	}

	return info.Owner, nil
}

// IsStaged tells whether the file at `p` has a staged local copy.
func (fs *FS) IsStaged(p string) bool {
	return fs.cache.Has(fs.archivePath(path.Clean("/" + p)))
}

// InvalidateListings drops cached listings below `prefix`.
func (fs *FS) InvalidateListings(prefix string) error {
	return fs.listings.Invalidate(path.Clean("/" + prefix))
}

// Open returns a read-only handle for the file at `p`.
//
// If the file is already staged, the handle is backed by it immediately
// (bumping its mtime so cache scrubbers keep their hands off). Otherwise
// the retrieval is queued and the handle blocks on first use until the
// batch containing it was fetched. Retrieval errors surface on first use.
func (fs *FS) Open(ctx context.Context, p string) (*File, error) {
	p = path.Clean("/" + p)
	archive := fs.archivePath(p)
	local := fs.cache.LocalPath(archive)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cache.Has(archive) && !fs.override {
		if err := fs.cache.Touch(local); err != nil {
			return nil, e.Wrap(err, "failed to touch staged file")
		}

		fd, err := os.Open(local)
		if err != nil {
			return nil, err
		}

		return &File{path: p, local: local, fd: fd}, nil
	}

	job := fs.fetcher.Enqueue(ctx, archive, local)
	return &File{path: p, local: local, job: job}, nil
}

// Retrieve stages all given paths in a single batch and waits for it.
func (fs *FS) Retrieve(ctx context.Context, paths ...string) error {
	jobs := make([]*fetchJob, 0, len(paths))
	for _, p := range paths {
		archive := fs.archivePath(p)
		if fs.cache.Has(archive) && !fs.override {
			continue
		}

		jobs = append(jobs, fs.fetcher.Enqueue(ctx, archive, fs.cache.LocalPath(archive)))
	}

	fs.fetcher.Kick()

	for _, job := range jobs {
		if err := job.Wait(); err != nil {
			return err
		}
	}

	return nil
}
