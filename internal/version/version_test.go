package version

import (
	"regexp"
	"testing"
)

func TestCurrentIsSemverWithoutVPrefix(t *testing.T) {
	t.Parallel()

	semver := regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	if !semver.MatchString(Current) {
		t.Fatalf("Current=%q must match <major>.<minor>.<patch>", Current)
	}
}

func TestCommitDefaultsToDev(t *testing.T) {
	t.Parallel()

	if Commit == "" {
		t.Fatalf("Commit must not be empty")
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	want := "contact-enricher " + Current + " (" + Commit + ")"
	if got := String(); got != want {
		t.Fatalf("String()=%q want=%q", got, want)
	}
}
