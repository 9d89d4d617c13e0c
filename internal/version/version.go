// Package version holds the build identity of devjourney.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X devjourney/internal/version.Version=0.4.1 -X devjourney/internal/version.Commit=$(git rev-parse HEAD)"
package version

import "runtime/debug"

var (
	Version   = "0.4.0"
	Commit    = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	BuildDate string
	Modified  bool
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns the ldflags values, filling commit and date from the VCS
// stamp embedded by the go tool when they were not set.
func Get() Build {
	b := Build{Version: Version, Commit: Commit, BuildDate: BuildDate}
	info, ok := readBuildInfo()
	if !ok {
		return b.withDefaults()
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b.withDefaults()
}

func (b Build) withDefaults() Build {
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.BuildDate == "" {
		b.BuildDate = "unknown"
	}
	return b
}

// String is the one-line form used by --version: "0.4.0 (1a2b3c4)".
func (b Build) String() string {
	if b.Commit == "unknown" || len(b.Commit) < 7 {
		return b.Version
	}
	s := b.Version + " (" + b.Commit[:7]
	if b.Modified {
		s += "-dirty"
	}
	return s + ")"
}
