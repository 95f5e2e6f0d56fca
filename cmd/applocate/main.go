// Command applocate locates installed-application artifacts on Windows.
package main

import (
	"os"

	"github.com/3leaps/applocate/internal/cmd"
)

// version, commit and buildDate are set via -ldflags at release build
// time; they default to "dev"/"HEAD"/"unknown" for local builds.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Execute())
}
