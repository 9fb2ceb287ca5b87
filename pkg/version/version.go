// Package version provides build and version information for orderdesk.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags, e.g.
// -X github.com/Aman-CERP/orderdesk/pkg/version.Version=$(VERSION)
var (
	Version = "dev"
	Commit  = "unknown"
	// Date is RFC3339.
	Date = "unknown"
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the build information. Commit and date not set by
// ldflags are taken from the VCS stamp of `go build`, when present.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String returns the version with all build info.
func String() string {
	info := GetInfo()
	commit := info.Commit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("orderdesk %s (commit: %s, built: %s, go: %s)",
		info.Version, commit, info.Date, info.GoVersion)
}

// Short returns just the version string.
func Short() string {
	return Version
}
