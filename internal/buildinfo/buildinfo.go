// Package buildinfo carries the firmware identity reported by "file?" and
// "lapsego version". Values are overridden at link time, e.g.
//
//	go build -ldflags "-X github.com/cjeanneret/LapseGo/internal/buildinfo.version=v1.2.0"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Name is the firmware name.
const Name = "LapseGo"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info identifies one build.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s) built %s", i.Name, i.Version, i.Commit, i.Date)
}

// Get returns the link-time values, falling back to module and VCS data
// embedded by the Go toolchain.
func Get() Info {
	info := Info{Name: Name, Version: version, Commit: commit, Date: date}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
