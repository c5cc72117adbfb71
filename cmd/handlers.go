package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	ecgofs "github.com/observingclouds/ecgofs"
	"github.com/observingclouds/ecgofs/ecfs"
	"github.com/observingclouds/ecgofs/ecurl"
	"github.com/observingclouds/ecgofs/fuse"
	"github.com/observingclouds/ecgofs/gateway"
)

func handleVersion(ctx *cli.Context) error {
	fmt.Println(ecgofs.VersionString())
	return nil
}

func handleLs(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	entries, err := fs.Ls(context.Background(), u.Path, ecfs.LsOptions{
		All:       ctx.Bool("all"),
		Recursive: ctx.Bool("recursive"),
	})

	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("ls: %v", err)}
	}

	tabW := tabwriter.NewWriter(
		os.Stdout, 0, 0, 2, ' ',
		tabwriter.StripEscape,
	)

	if len(entries) != 0 {
		fmt.Fprintln(tabW, "SIZE\tOWNER\tPATH\t")
	}

	for _, entry := range entries {
		entryPath := entry.Path
		if entry.IsDir {
			entryPath = color.CyanString(entryPath + "/")
		}

		fmt.Fprintf(
			tabW,
			"%s\t%s\t%s\t\n",
			humanize.Bytes(uint64(entry.Size)),
			entry.Owner,
			entryPath,
		)
	}

	return tabW.Flush()
}

func handleCat(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	fd, err := fs.Open(context.Background(), u.Path)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cat: %v", err)}
	}

	defer fd.Close()

	if _, err := io.Copy(os.Stdout, fd); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cat: %v", err)}
	}

	return nil
}

func handleGet(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	dstPath := path.Base(u.Path)
	if ctx.NArg() > 1 {
		dstPath = ctx.Args().Get(1)
	}

	fd, err := fs.Open(context.Background(), u.Path)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("get: %v", err)}
	}

	defer fd.Close()

	dstFd, err := os.OpenFile(dstPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("get: %v", err)}
	}

	defer dstFd.Close()

	if _, err := io.Copy(dstFd, fd); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("get: %v", err)}
	}

	return nil
}

func handleInfo(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	info, err := fs.Stat(context.Background(), u.Path)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("info: %v", err)}
	}

	tabW := tabwriter.NewWriter(
		os.Stdout, 0, 0, 2, ' ',
		tabwriter.StripEscape,
	)

	fmt.Fprintf(tabW, "Path:\t%s\t\n", info.Path)
	fmt.Fprintf(tabW, "Size:\t%s\t\n", humanize.Bytes(uint64(info.Size)))
	fmt.Fprintf(tabW, "Owner:\t%s\t\n", info.Owner)
	fmt.Fprintf(tabW, "Group:\t%s\t\n", info.Group)
	fmt.Fprintf(tabW, "IsDir:\t%s\t\n", yesify(info.IsDir))
	fmt.Fprintf(tabW, "Staged:\t%s\t\n", yesify(fs.IsStaged(u.Path)))

	return tabW.Flush()
}

func handleExists(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	if fs.Exists(context.Background(), u.Path) {
		fmt.Println(color.GreenString("yes"))
		return nil
	}

	fmt.Println(color.RedString("no"))
	return ExitCode{UnknownError, ""}
}

func handleOwner(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	owner, err := fs.Owner(context.Background(), u.Path)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("owner: %v", err)}
	}

	fmt.Println(owner)
	return nil
}

func handleRetrieve(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	paths := []string{u.Path}
	for _, raw := range ctx.Args().Tail() {
		other, err := ecurl.Parse(raw)
		if err != nil {
			return ExitCode{BadURL, fmt.Sprintf("retrieve: %v", err)}
		}

		if other.Scheme != u.Scheme {
			return ExitCode{
				BadURL,
				fmt.Sprintf("retrieve: all urls must share one scheme, got %s and %s", u.Scheme, other.Scheme),
			}
		}

		paths = append(paths, other.Path)
	}

	if err := fs.Retrieve(context.Background(), paths...); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("retrieve: %v", err)}
	}

	log.Infof("retrieved %d file(s) to %s", len(paths), fs.Cache().Root())
	return nil
}

func handleInvalidate(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	if err := fs.InvalidateListings(u.Path); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("invalidate: %v", err)}
	}

	return nil
}

func handleMount(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	mountPath := ctx.Args().Get(1)

	mount, err := fuse.NewMount(fs, mountPath, fuse.MountOptions{Root: u.Path})
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("mount: %v", err)}
	}

	// Block until hitting Ctrl-C:
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	fmt.Printf("Mounted %s at %s. Hit Ctrl-C to unmount.\n", u.String(), mountPath)
	<-ch

	if err := mount.Close(); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("unmount: %v", err)}
	}

	return nil
}

func handleGateway(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return ExitCode{BadConfig, fmt.Sprintf("failed to load config: %v", err)}
	}

	applyGlobalFlags(ctx, cfg)

	fs, err := buildFS(cfg, ecfs.SchemeEC)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("gateway: %v", err)}
	}

	defer fs.Close()

	gw := gateway.NewGateway(fs, cfg.Section("gateway"))
	gw.Start()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	fmt.Printf("Serving on %s. Hit Ctrl-C to stop.\n", cfg.String("gateway.addr"))
	<-ch

	return gw.Stop()
}

func handleCacheUsage(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	usage, err := fs.Cache().Usage()
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cache usage: %v", err)}
	}

	tabW := tabwriter.NewWriter(
		os.Stdout, 0, 0, 2, ' ',
		tabwriter.StripEscape,
	)

	fmt.Fprintf(tabW, "Directory:\t%s\t\n", fs.Cache().Root())
	fmt.Fprintf(tabW, "Files:\t%d\t\n", usage.Files)
	fmt.Fprintf(tabW, "Used:\t%s\t\n", humanize.Bytes(uint64(usage.Bytes)))
	fmt.Fprintf(tabW, "Free:\t%s\t\n", humanize.Bytes(uint64(usage.Free)))

	return tabW.Flush()
}

func handleCacheClean(ctx *cli.Context, fs *ecfs.FS, u *ecurl.URL) error {
	olderThan, err := time.ParseDuration(ctx.String("older-than"))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("cache clean: %v", err)}
	}

	removed, err := fs.Cache().Clean(olderThan)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cache clean: %v", err)}
	}

	log.Infof("removed %d staged file(s)", removed)
	return nil
}

func handleConfigList(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return ExitCode{BadConfig, fmt.Sprintf("failed to load config: %v", err)}
	}

	for _, key := range cfg.Keys() {
		entry := cfg.GetDefault(key)
		fmt.Printf(
			"%s: %v\n",
			color.GreenString(key),
			cfg.Get(key),
		)

		if entry.Docs != "" {
			fmt.Printf("  %s\n", strings.TrimSpace(entry.Docs))
		}
	}

	return nil
}

func handleConfigGet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return ExitCode{BadConfig, fmt.Sprintf("failed to load config: %v", err)}
	}

	key := ctx.Args().Get(0)
	fmt.Printf("%v\n", cfg.Get(key))
	return nil
}

func handleConfigSet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return ExitCode{BadConfig, fmt.Sprintf("failed to load config: %v", err)}
	}

	key := ctx.Args().Get(0)
	val, err := cfg.Cast(key, ctx.Args().Get(1))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := cfg.Set(key, val); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := saveConfig(ctx, cfg); err != nil {
		return ExitCode{BadConfig, fmt.Sprintf("failed to save config: %v", err)}
	}

	if cfg.GetDefault(key).NeedsRestart {
		fmt.Println("NOTE: Running instances need a restart for this to take effect.")
	}

	return nil
}
