// Package backend maps configured backend names to implementations.
package backend

import (
	"errors"

	"github.com/observingclouds/ecgofs/backend/cli"
	"github.com/observingclouds/ecgofs/backend/mock"
	"github.com/observingclouds/ecgofs/ecfs"
)

var (
	// ErrNoSuchBackend is returned when passing an invalid backend name.
	ErrNoSuchBackend = errors.New("No such backend")
)

// Options collects the knobs of all backends.
// Each backend picks the fields it cares about.
type Options struct {
	// ElsBinary/EcpBinary/ListRate configure the cli backend.
	ElsBinary string
	EcpBinary string
	ListRate  float64

	// MockRoot is the directory served by the mock backend.
	MockRoot string
}

// FromName builds the backend called `name`.
func FromName(name string, opts Options) (ecfs.Backend, error) {
	switch name {
	case "cli":
		return cli.New(cli.Options{
			ElsBinary: opts.ElsBinary,
			EcpBinary: opts.EcpBinary,
			ListRate:  opts.ListRate,
		}), nil
	case "mock":
		return mock.New(opts.MockRoot), nil
	}

	return nil, ErrNoSuchBackend
}

// IsValidName tells whether `name` names a known backend.
func IsValidName(name string) bool {
	_, err := FromName(name, Options{})
	return err == nil
}
