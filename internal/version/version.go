// Package version reports the build version of the dlipower binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Version and Commit can be set at build time:
//
//	go build -ldflags="-X github.com/muurk/dlipower/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/dlipower/internal/version.Commit=abc123"
//
// Unset values are filled from the module and VCS build info on first use.
var (
	Version = ""
	Commit  = ""
)

// Info is the resolved build information
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	once     sync.Once
	resolved Info
)

// Get returns the build information, resolving it once
func Get() Info {
	once.Do(func() {
		resolved = resolve(Version, Commit, readBuildInfo())
	})
	return resolved
}

// Full returns the version with its commit, e.g. "v1.2.3 (commit: abc1234)"
func Full() string {
	i := Get()
	return fmt.Sprintf("%s (commit: %s)", i.Version, i.Commit)
}

func readBuildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

// resolve fills the gaps in the ldflags values from build info
func resolve(version, commit string, info *debug.BuildInfo) Info {
	out := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info != nil {
		if out.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			out.Version = info.Main.Version
		}

		var revision, modified, vcsTime string
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}

		if out.Commit == "" && revision != "" {
			out.Commit = revision
			if len(out.Commit) > 7 {
				out.Commit = out.Commit[:7]
			}
			if modified == "true" {
				out.Commit += "-dirty"
			}
		}
		if out.Version == "" && len(vcsTime) >= 10 {
			// vcs.time is RFC 3339; keep the date
			out.Version = "dev-" + vcsTime[:4] + vcsTime[5:7] + vcsTime[8:10]
		}
	}

	if out.Version == "" {
		out.Version = "dev"
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	return out
}
