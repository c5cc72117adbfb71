package ecfs

import (
	"errors"
	"fmt"
)

var (
	// ErrReadOnly is returned by all operations that would modify the archive.
	ErrReadOnly = errors.New("The tape archive is read-only")

	// ErrNoSuchScheme is returned for URL schemes other than ec and ectmp.
	ErrNoSuchScheme = errors.New("No such scheme (expected ec or ectmp)")
)

type errNoSuchFile struct {
	path string
}

func (e *errNoSuchFile) Error() string {
	return "No such file or directory: " + e.path
}

// NoSuchFile creates a new error that reports `path` as missing.
func NoSuchFile(path string) error {
	return &errNoSuchFile{path}
}

// IsNoSuchFileError asserts that `err` means that the file could not be found.
func IsNoSuchFileError(err error) bool {
	_, ok := err.(*errNoSuchFile)
	return ok
}

//////////////

type errPermissionDenied struct {
	path string
}

func (e *errPermissionDenied) Error() string {
	return "Permission denied: " + e.path
}

// PermissionDenied creates a new error reporting that the archive
// refused access to `path`.
func PermissionDenied(path string) error {
	return &errPermissionDenied{path}
}

// IsPermissionError asserts that `err` means the archive denied access.
func IsPermissionError(err error) bool {
	_, ok := err.(*errPermissionDenied)
	return ok
}

//////////////

// ErrCommandFailed wraps a failed archive command invocation.
// It keeps the command line and its stderr output for diagnosis.
type ErrCommandFailed struct {
	Command []string
	Stderr  string
	Reason  error
}

func (e *ErrCommandFailed) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %v failed: %v", e.Command, e.Reason)
	}

	return fmt.Sprintf("command %v failed: %v: %s", e.Command, e.Reason, e.Stderr)
}

// IsCommandFailedError asserts that `err` is a failed command invocation.
func IsCommandFailedError(err error) bool {
	_, ok := err.(*ErrCommandFailed)
	return ok
}
