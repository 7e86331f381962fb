// Package version reports the relay release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// commit is set at build time with -ldflags "-X .../internal/version.commit=<sha>".
var commit string

// Get returns the current version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String returns the version with the build commit appended when known.
func String() string {
	if commit == "" {
		return Get()
	}
	c := commit
	if len(c) > 7 {
		c = c[:7]
	}
	return Get() + " (" + c + ")"
}
