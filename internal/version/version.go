// Package version reports the csac build. The variables are set with
// -ldflags "-X github.com/standardbeagle/csac/internal/version.GitCommit=...".
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var (
	Version   = "0.3.0"
	BuildDate = "development"
	GitCommit = "unknown"
)

// Info returns the bare semantic version
func Info() string {
	return Version
}

// FullInfo returns the version with commit and build date
func FullInfo() string {
	return fmt.Sprintf("csac %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}

var buildID = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version + "-" + GitCommit
	}
	d := xxhash.New()
	for _, s := range []string{info.GoVersion, info.Main.Path, info.Main.Version} {
		_, _ = d.WriteString(s)
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" || s.Key == "vcs.modified" || s.Key == "vcs.time" {
			_, _ = d.WriteString(s.Key + "=" + s.Value)
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
})

// BuildID fingerprints the running binary so an MCP client can tell a
// stale server from a rebuilt one
func BuildID() string {
	return buildID()
}
