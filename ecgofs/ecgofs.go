package main

import (
	"os"

	"github.com/observingclouds/ecgofs/cmd"
)

func main() {
	os.Exit(cmd.RunCmdline(os.Args))
}
