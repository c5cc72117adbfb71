// Package cli implements the archive backend that shells out to the
// site-installed ECFS tools (els for listings, ecp for retrievals).
package cli

import (
	"context"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/observingclouds/ecgofs/ecfs"
)

// Default binary names; overridable for odd module setups.
const (
	DefaultElsBinary = "els"
	DefaultEcpBinary = "ecp"
)

// Options for the CLI backend.
type Options struct {
	// ElsBinary and EcpBinary name the archive tools.
	// Empty values pick the defaults from $PATH.
	ElsBinary string
	EcpBinary string

	// ListRate limits listing invocations per second.
	// Zero means no limit.
	ListRate float64
}

// Backend talks to the archive via els and ecp.
type Backend struct {
	els     string
	ecp     string
	limiter *rate.Limiter
}

// New builds a Backend from `opts`.
func New(opts Options) *Backend {
	els := opts.ElsBinary
	if els == "" {
		els = DefaultElsBinary
	}

	ecp := opts.EcpBinary
	if ecp == "" {
		ecp = DefaultEcpBinary
	}

	limit := rate.Inf
	if opts.ListRate > 0 {
		limit = rate.Limit(opts.ListRate)
	}

	return &Backend{
		els:     els,
		ecp:     ecp,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// classify turns stderr of a failed archive command into one of our errors.
func classify(p string, command []string, stderr string, reason error) error {
	low := strings.ToLower(stderr)
	switch {
	case strings.Contains(low, "permission denied"):
		return ecfs.PermissionDenied(p)
	case strings.Contains(low, "does not exist"),
		strings.Contains(low, "no such file"),
		strings.Contains(low, "not found"):
		return ecfs.NoSuchFile(p)
	default:
		return &ecfs.ErrCommandFailed{
			Command: command,
			Stderr:  strings.TrimSpace(stderr),
			Reason:  reason,
		}
	}
}

func (cb *Backend) run(ctx context.Context, p, bin string, args ...string) ([]byte, error) {
	command := append([]string{bin}, args...)
	log.Debugf("running archive command: %s", strings.Join(command, " "))

	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}

		return nil, classify(p, command, stderr, err)
	}

	return out, nil
}

// List implements ecfs.Backend by invoking els.
func (cb *Backend) List(ctx context.Context, p string, opts ecfs.ListOptions) ([]ecfs.Entry, error) {
	if opts.Recursive {
		log.Warning("recursive listings of large archive trees are prone to timeouts")
	}

	if err := cb.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	args := []string{"-l"}
	if opts.All {
		args = append(args, "-a")
	}

	if opts.Self {
		args = append(args, "-d")
	}

	if opts.Recursive {
		args = append(args, "-R")
	}

	args = append(args, p)
	out, err := cb.run(ctx, p, cb.els, args...)
	if err != nil {
		return nil, err
	}

	return parseLongListing(string(out), p), nil
}

// Copy implements ecfs.Backend by invoking ecp.
// The archive-side source carries the ec: prefix ecp expects; temporary
// storage is addressed through its /TMP path, which ecp also accepts.
func (cb *Backend) Copy(ctx context.Context, src, dst string) error {
	_, err := cb.run(ctx, src, cb.ecp, "ec:"+src, dst)
	return err
}
