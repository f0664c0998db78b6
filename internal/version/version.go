// Package version holds build metadata injected with -ldflags.
package version

import "runtime/debug"

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// String returns "version (commit: ..., built: ...)". When Commit was not
// injected, the VCS revision recorded by the Go toolchain is used.
func String() string {
	commit := Commit
	if commit == "none" {
		commit = vcsRevision()
	}
	return Version + " (commit: " + commit + ", built: " + BuildDate + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "none"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "none"
}
