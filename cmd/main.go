package main

import (
	"mmfs.ai/launcher/internal/cli"
)

// Overridden by ldflags at release time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Execute(version, commit, date)
}
