package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sahib/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/observingclouds/ecgofs/backend"
	"github.com/observingclouds/ecgofs/cache"
	"github.com/observingclouds/ecgofs/defaults"
	"github.com/observingclouds/ecgofs/ecfs"
	"github.com/observingclouds/ecgofs/ecfs/lscache"
	"github.com/observingclouds/ecgofs/ecurl"
)

// ExitCode is an error that maps a message to a process exit code.
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

func yesify(val bool) string {
	if val {
		return "yes"
	}

	return "no"
}

func guessConfigPath(ctx *cli.Context) string {
	if path := ctx.GlobalString("config"); path != "" {
		return path
	}

	folder, err := homedir.Expand("~/.config/ecgofs")
	if err != nil {
		folder = ".ecgofs"
	}

	return filepath.Join(folder, "config.yml")
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := guessConfigPath(ctx)
	cfg, err := defaults.OpenMigratedConfig(path)
	if err == nil {
		return cfg, nil
	}

	if !os.IsNotExist(errCause(err)) {
		return nil, err
	}

	// No config written yet. Start out with the defaults.
	return config.Open(nil, defaults.Defaults, config.StrictnessPanic)
}

func errCause(err error) error {
	type causer interface {
		Cause() error
	}

	if c, ok := err.(causer); ok {
		return c.Cause()
	}

	return err
}

func saveConfig(ctx *cli.Context, cfg *config.Config) error {
	path := guessConfigPath(ctx)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	fd, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	defer fd.Close()

	return cfg.Save(config.NewYamlEncoder(fd))
}

// applyGlobalFlags lets commandline flags win over config keys.
func applyGlobalFlags(ctx *cli.Context, cfg *config.Config) {
	if cacheDir := ctx.GlobalString("cache"); cacheDir != "" {
		cfg.SetString("cache.root", cacheDir)
	}

	if name := ctx.GlobalString("backend"); name != "" {
		cfg.SetString("data.backend", name)
	}

	if ctx.GlobalBool("override") {
		cfg.SetBool("cache.override", true)
	}
}

func buildListings(cfg *config.Config, cacheDir string) (lscache.Store, error) {
	switch name := cfg.String("lscache.backend"); name {
	case "badger":
		return lscache.NewBadgerStore(filepath.Join(cacheDir, cache.InternalDirName, "lscache"))
	case "memory":
		return lscache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("no such listing cache backend: %s", name)
	}
}

// buildFS builds a filesystem for `scheme` from the config.
func buildFS(cfg *config.Config, scheme string) (*ecfs.FS, error) {
	bk, err := backend.FromName(cfg.String("data.backend"), backend.Options{
		ElsBinary: cfg.String("data.cli.els_binary"),
		EcpBinary: cfg.String("data.cli.ecp_binary"),
		ListRate:  cfg.Float("fetch.list_rate"),
		MockRoot:  cfg.String("data.mock.root"),
	})

	if err != nil {
		return nil, err
	}

	perms, err := strconv.ParseUint(cfg.String("cache.permissions"), 8, 32)
	if err != nil {
		return nil, err
	}

	opts := ecfs.Options{
		Scheme:      scheme,
		CacheDir:    cfg.String("cache.root"),
		Permissions: uint32(perms),
		Touch:       cfg.Bool("cache.touch"),
		Override:    cfg.Bool("cache.override"),
		FetchDelay:  time.Duration(cfg.Int("fetch.delay")) * time.Second,
	}

	// The listing cache lives inside the staging directory; resolve it
	// the same way the filesystem will.
	if cfg.String("lscache.backend") == "badger" {
		cacheDir, err := cache.ResolveDir(cfg.String("cache.root"))
		if err != nil {
			return nil, err
		}

		listings, err := buildListings(cfg, cacheDir)
		if err != nil {
			return nil, err
		}

		opts.Listings = listings
	}

	return ecfs.NewFilesystem(bk, opts)
}

// registerSchemes makes ec:// and ectmp:// urls resolvable via ecurl.
func registerSchemes(cfg *config.Config) {
	for _, scheme := range []string{ecfs.SchemeEC, ecfs.SchemeECTmp} {
		scheme := scheme
		ecurl.Register(scheme, func(u *ecurl.URL) (*ecfs.FS, error) {
			return buildFS(cfg, scheme)
		})
	}
}

type fsHandler func(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error

// withFs parses the first argument as archive url, builds the matching
// filesystem from the config and hands both to `handler`.
func withFs(handler fsHandler) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return ExitCode{BadConfig, fmt.Sprintf("failed to load config: %v", err)}
		}

		applyGlobalFlags(ctx, cfg)
		registerSchemes(cfg)

		raw := "/"
		if ctx.Args().Present() {
			raw = ctx.Args().First()
		}

		fs, u, err := ecurl.Open(raw)
		if err != nil {
			return ExitCode{BadURL, fmt.Sprintf("bad archive url `%s`: %v", raw, err)}
		}

		defer func() {
			if err := fs.Close(); err != nil {
				log.Warningf("failed to close filesystem: %v", err)
			}
		}()

		return handler(ctx, fs, u)
	}
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if checker(ctx) != Success {
			os.Exit(BadArgs)
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}
