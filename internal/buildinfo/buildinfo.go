// Package buildinfo exposes the version/commit stamp the CLI and the
// ebiten window title log through the teacher's "component"-tagged slog
// convention rather than printing raw strings.
package buildinfo

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Short returns a compact build identifier: Version if it was set to
// something other than the "dev" placeholder, else Commit, else "dev".
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}
