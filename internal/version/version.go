// Package version holds the release version of the CLI.
package version

// Current is the release version, without a "v" prefix.
const Current = "0.2.0"

// Commit is set at build time with -ldflags "-X .../internal/version.Commit=<sha>".
var Commit = "dev"

// String formats the version the way the CLI prints it.
func String() string {
	commit := Commit
	if commit == "" {
		commit = "dev"
	}
	return "contact-enricher " + Current + " (" + commit + ")"
}
