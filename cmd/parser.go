package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	ecgofs "github.com/observingclouds/ecgofs"
	formatter "github.com/observingclouds/ecgofs/util/log"
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&formatter.FancyLogFormatter{
		UseColors: true,
	})
}

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

func setLogPath(path string) error {
	switch path {
	case "stdout":
		log.SetOutput(os.Stdout)
	case "stderr":
		log.SetOutput(os.Stderr)
	default:
		fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		log.SetOutput(fd)
		log.SetFormatter(&formatter.FancyLogFormatter{
			UseColors: false,
		})
	}

	return nil
}

////////////////////////////
// Commandline definition //
////////////////////////////

// RunCmdline starts the ecgofs commandline tool.
func RunCmdline(args []string) int {
	app := cli.NewApp()
	app.Name = "ecgofs"
	app.Usage = "Access the ECFS tape archive through a local cache"
	app.EnableBashCompletion = true
	app.Version = ecgofs.VersionString()

	// Groups:
	archGroup := formatGroup("archive")
	cacheGroup := formatGroup("cache")
	miscGroup := formatGroup("misc")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path to the config file",
			Value:  "",
			EnvVar: "ECGOFS_CONFIG",
		},
		cli.StringFlag{
			Name:   "cache",
			Usage:  "Where to stage retrieved files (overrides the config)",
			Value:  "",
			EnvVar: "EC_CACHE",
		},
		cli.StringFlag{
			Name:  "backend,b",
			Usage: "What archive backend to use (overrides the config)",
			Value: "",
		},
		cli.BoolFlag{
			Name:  "override",
			Usage: "Retrieve files even when they are already staged",
		},
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "Enable debug logging",
		},
		cli.StringFlag{
			Name:   "log-path,l",
			Usage:  "Where to output the log. May be 'stderr' (default) or 'stdout'",
			Value:  "stderr",
			EnvVar: "ECGOFS_LOG",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:        "ls",
			Category:    archGroup,
			Usage:       "List archive entries",
			ArgsUsage:   "<url> [--recursive|-R] [--all|-a]",
			Description: "List the entries below an archive directory in a ls-like manner",
			Action:      withArgCheck(needAtLeast(1), withFs(handleLs)),
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "recursive,R",
					Usage: "List subdirectories recursively (may take very long)",
				},
				cli.BoolFlag{
					Name:  "all,a",
					Usage: "Include hidden entries",
				},
			},
		},
		cli.Command{
			Name:        "cat",
			Category:    archGroup,
			Usage:       "Print an archive file on stdout",
			ArgsUsage:   "<url>",
			Description: "Stage the file to the cache and print its contents on stdout",
			Action:      withArgCheck(needAtLeast(1), withFs(handleCat)),
		},
		cli.Command{
			Name:        "get",
			Category:    archGroup,
			Usage:       "Copy an archive file to a local destination",
			ArgsUsage:   "<url> [<destination>]",
			Description: "Stage the file to the cache and copy it to the given destination",
			Action:      withArgCheck(needAtLeast(1), withFs(handleGet)),
		},
		cli.Command{
			Name:        "info",
			Aliases:     []string{"stat"},
			Category:    archGroup,
			Usage:       "Show metadata of an archive entry",
			ArgsUsage:   "<url>",
			Description: "Show size, ownership and staging state of an archive entry",
			Action:      withArgCheck(needAtLeast(1), withFs(handleInfo)),
		},
		cli.Command{
			Name:        "exists",
			Category:    archGroup,
			Usage:       "Check if an archive entry exists",
			ArgsUsage:   "<url>",
			Description: "Prints yes/no and exits non-zero when the entry is missing",
			Action:      withArgCheck(needAtLeast(1), withFs(handleExists)),
		},
		cli.Command{
			Name:        "owner",
			Category:    archGroup,
			Usage:       "Print the archive-side owner of an entry",
			ArgsUsage:   "<url>",
			Description: "Print the user name owning the entry on the archive",
			Action:      withArgCheck(needAtLeast(1), withFs(handleOwner)),
		},
		cli.Command{
			Name:        "retrieve",
			Category:    archGroup,
			Usage:       "Stage one or more archive files in a single batch",
			ArgsUsage:   "<url>...",
			Description: "Stage all given files to the cache. Batching them gives the tape robot a chance to order its reads",
			Action:      withArgCheck(needAtLeast(1), withFs(handleRetrieve)),
		},
		cli.Command{
			Name:        "invalidate",
			Category:    cacheGroup,
			Usage:       "Drop remembered listings below a prefix",
			ArgsUsage:   "[<url>]",
			Description: "Drop cached directory listings so the next ls asks the archive again",
			Action:      withFs(handleInvalidate),
		},
		cli.Command{
			Name:     "cache",
			Category: cacheGroup,
			Usage:    "Inspect and groom the staging directory",
			Subcommands: []cli.Command{
				cli.Command{
					Name:        "usage",
					Usage:       "Show file count and disk usage of the cache",
					Description: "Show file count, used bytes and free space of the staging directory",
					Action:      withFs(handleCacheUsage),
				},
				cli.Command{
					Name:        "clean",
					Usage:       "Remove staged files older than a given age",
					ArgsUsage:   "[--older-than|-o <duration>]",
					Description: "Remove staged files whose mtime is older than the given duration",
					Action:      withFs(handleCacheClean),
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "older-than,o",
							Value: "720h",
							Usage: "Age threshold, e.g. 48h or 30m",
						},
					},
				},
			},
		},
		cli.Command{
			Name:        "mount",
			Category:    miscGroup,
			Usage:       "Mount an archive directory as read-only FUSE filesystem",
			ArgsUsage:   "<url> <mountpoint>",
			Description: "Mount an archive directory. Reads stage files to the cache on demand",
			Action:      withArgCheck(needAtLeast(2), withFs(handleMount)),
		},
		cli.Command{
			Name:        "gateway",
			Category:    miscGroup,
			Usage:       "Serve archive listings and files over HTTP",
			Description: "Run the read-only HTTP gateway until interrupted",
			Action:      handleGateway,
		},
		cli.Command{
			Name:     "config",
			Category: miscGroup,
			Usage:    "Access, list and modify configuration values",
			Subcommands: []cli.Command{
				cli.Command{
					Name:        "list",
					Aliases:     []string{"ls"},
					Usage:       "Show current config values",
					Description: "Show all config keys with their current values and docs",
					Action:      handleConfigList,
				},
				cli.Command{
					Name:        "get",
					Usage:       "Get a specific config value",
					Description: "Get a specific config value and print it to stdout",
					ArgsUsage:   "<configkey>",
					Action:      withArgCheck(needAtLeast(1), handleConfigGet),
				},
				cli.Command{
					Name:        "set",
					Usage:       "Set a specific config value",
					Description: "Set a given config option to the given value",
					ArgsUsage:   "<configkey> <value>",
					Action:      withArgCheck(needAtLeast(2), handleConfigSet),
				},
			},
		},
		cli.Command{
			Name:        "version",
			Category:    miscGroup,
			Usage:       "Print the version",
			Description: "Print the semantic version",
			Action:      handleVersion,
		},
	}

	app.Before = func(ctx *cli.Context) error {
		if ctx.Bool("debug") {
			log.SetLevel(log.DebugLevel)
		}

		return setLogPath(ctx.String("log-path"))
	}

	if err := app.Run(args); err != nil {
		if exc, ok := err.(ExitCode); ok {
			if exc.Message != "" {
				fmt.Fprintln(os.Stderr, exc.Message)
			}

			return exc.Code
		}

		fmt.Fprintln(os.Stderr, err)
		return UnknownError
	}

	return Success
}
