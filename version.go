package main

import "strings"

// Set at build time with -ldflags "-X main.buildVersion=... -X main.buildCommit=...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func versionString() string {
	return formatVersion(buildVersion, buildCommit)
}

// formatVersion returns a release tag as-is and "dev-<short sha>" for untagged builds.
func formatVersion(version, commit string) string {
	v := strings.TrimSpace(version)
	if v != "" && v != "dev" {
		return v
	}
	c := strings.TrimSpace(commit)
	if c == "" || c == "unknown" {
		return "dev"
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return "dev-" + c
}
