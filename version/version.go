package version

import (
	"runtime/debug"
	"strings"
)

// Version can be set at build time:
// go build -ldflags "-X github.com/loopvm/loopvm/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for modified trees.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}()

// String returns the program name with its version or hash, for -v flags
// and log headers.
func String(program string) string {
	v := Version
	if v == "" {
		v = Hash
	}
	if v == "" {
		v = "devel"
	}
	return strings.TrimSpace(program + " " + v)
}
