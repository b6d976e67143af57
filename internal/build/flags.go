// SPDX-License-Identifier: MIT
//
// Package build carries the metadata linked into the binary at compile time:
// application name, build timestamp, Git commit hash and semantic version.
// Release builds inject all of it via -ldflags; development builds run with
// the "unknown" placeholders.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation, for example:
//
//	go build -ldflags "-X github.com/samuelpmahan/audio-viz/internal/build.buildName=audio-viz"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize validates and copies build information from the ldflags
// variables into the buildFlags struct. It must be called early in program
// startup. Returns an error naming the first missing flag; the placeholders
// stay in effect so a development build keeps running after logging it.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information. Safe to call whether
// or not Initialize succeeded; the fields then hold the placeholders.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
