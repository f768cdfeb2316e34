// Package version carries build metadata stamped through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Resolved returns the stamped version, or the module version recorded by
// `go install` when nothing was stamped.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}

// String renders the --version line.
func String() string {
	return fmt.Sprintf("flmcp %s (commit=%s, date=%s, go=%s)", Resolved(), Commit, Date, runtime.Version())
}
