// Package mock provides an archive backend that serves a local directory.
// It mirrors what the site tools would answer without needing an archive,
// which makes it the backend of choice for tests and dry runs.
package mock

import "github.com/observingclouds/ecgofs/ecfs"

// New returns a backend answering from the local directory `root`.
func New(root string) *ecfs.DirBackend {
	return ecfs.NewDirBackend(root)
}
