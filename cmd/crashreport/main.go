package main

import (
	"os"

	"github.com/strongdm/plugin-crash-reporter/internal/cli"
)

// Version is the version of the crash reporter.
const Version = "0.1.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	if err := cli.SetupCLI(Version, GitCommit).Execute(); err != nil {
		os.Exit(1)
	}
}
