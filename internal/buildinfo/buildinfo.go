// Package buildinfo contains build-time metadata separate from user
// configuration. Values are injected through ldflags at build time.
package buildinfo

// Version holds the Git version tag from build, "dev" when built locally.
var Version = "dev"

// BuildDate is the time when the binary was built.
var BuildDate = "unknown"
