// SPDX-License-Identifier: MIT
//
// Package build carries metadata stamped into the binary at compile
// time via linker flags, for example:
//
//	go build -ldflags "-X lumen/pkg/build.buildName=lumen -X lumen/pkg/build.buildVersion=0.1.0"
//
// Unstamped development builds fall back to "dev" values instead of
// failing, so a plain `go run .` always works.
package build

// Info holds the resolved build metadata.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags during compilation; empty in dev builds.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// Get returns the build metadata, substituting dev defaults for any
// flag the linker did not stamp.
func Get() Info {
	return Info{
		Name:    orDev(buildName, "lumen"),
		Time:    orDev(buildTime, "unknown"),
		Commit:  orDev(buildCommit, "unknown"),
		Version: orDev(buildVersion, "dev"),
	}
}

func orDev(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
