package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Modified  bool   `json:"modified,omitempty" yaml:"modified,omitempty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information.
func Get() Info {
	infoOnce.Do(func() {
		info = resolve(Version, Commit, BuildTime, GoVersion, debug.ReadBuildInfo)
	})
	return info
}

// resolve fills values that ldflags left at their defaults from the
// toolchain's embedded build info.
func resolve(version, commit, buildTime, goVersion string, read func() (*debug.BuildInfo, bool)) Info {
	out := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: goVersion,
	}

	bi, ok := read()
	if !ok || bi == nil {
		return out
	}
	if out.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "unknown" && s.Value != "" {
				out.Commit = s.Value
				if len(out.Commit) > 12 {
					out.Commit = out.Commit[:12]
				}
			}
		case "vcs.time":
			if out.BuildTime == "unknown" && s.Value != "" {
				out.BuildTime = s.Value
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
}

// String returns a formatted version string.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit + ") built at " + i.BuildTime
	if i.Modified {
		s += " (modified)"
	}
	return s
}
