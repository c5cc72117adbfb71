// Package ecurl parses ec:// and ectmp:// URLs and keeps the registry
// that maps those schemes to filesystem constructors. Callers hand in a
// URL and get a ready filesystem plus the archive path to use with it.
package ecurl

import (
	"net/url"
	"path"
	"strings"
	"sync"

	e "github.com/pkg/errors"

	"github.com/observingclouds/ecgofs/ecfs"
)

// URL is a parsed archive URL.
type URL struct {
	// Scheme is "ec" or "ectmp".
	Scheme string

	// Path is the absolute archive path (without any /TMP prefix,
	// the scheme carries that information).
	Path string
}

// String reassembles the URL.
func (u *URL) String() string {
	return u.Scheme + "://" + u.Path
}

// Parse interprets `raw` as an archive URL.
// Plain paths without a scheme default to the ec scheme. The host part
// of ec://host/path URLs is folded into the path; the archive has no
// notion of hosts and callers routinely blur that line.
func Parse(raw string) (*URL, error) {
	if !strings.Contains(raw, ":") {
		return &URL{
			Scheme: ecfs.SchemeEC,
			Path:   path.Clean("/" + raw),
		}, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, e.Wrapf(err, "failed to parse archive url `%s`", raw)
	}

	if parsed.Scheme != ecfs.SchemeEC && parsed.Scheme != ecfs.SchemeECTmp {
		return nil, ecfs.ErrNoSuchScheme
	}

	joined := parsed.Opaque
	if joined == "" {
		joined = parsed.Path
		if parsed.Host != "" {
			joined = parsed.Host + "/" + strings.TrimLeft(parsed.Path, "/")
		}
	}

	return &URL{
		Scheme: parsed.Scheme,
		Path:   path.Clean("/" + joined),
	}, nil
}

// Constructor builds a filesystem for a parsed URL.
type Constructor func(u *URL) (*ecfs.FS, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// Register binds `fn` to `scheme`, replacing any previous binding.
func Register(scheme string, fn Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[scheme] = fn
}

// Open parses `raw` and builds the filesystem registered for its scheme.
func Open(raw string) (*ecfs.FS, *URL, error) {
	u, err := Parse(raw)
	if err != nil {
		return nil, nil, err
	}

	registryMu.Lock()
	fn, ok := registry[u.Scheme]
	registryMu.Unlock()

	if !ok {
		return nil, nil, ecfs.ErrNoSuchScheme
	}

	fs, err := fn(u)
	if err != nil {
		return nil, nil, err
	}

	return fs, u, nil
}
