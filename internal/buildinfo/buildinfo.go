// Package buildinfo reports which build of the simulator is running.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X firmsim/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// vcs fills Commit and Date from the VCS stamp go build embeds when the
// linker flags left them empty.
func vcs() (commit, date string) {
	commit, date = Commit, Date
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "" {
				date = s.Value
			}
		}
	}
	return commit, date
}

// Short is the version, or a 12-digit commit for development builds.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if c, _ := vcs(); c != "" {
		return c[:min(len(c), 12)]
	}
	return "dev"
}

// String is the full line printed by -version.
func String() string {
	commit, date := vcs()
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("firmsim %s (commit %s, built %s)", Version, commit, date)
}
