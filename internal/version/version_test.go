// ABOUTME: Tests for version constants
// ABOUTME: Checks the identity strings sent in the client hello
package version

import (
	"regexp"
	"testing"
)

func TestIdentity(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"product", Product, "avsync-player"},
		{"manufacturer", Manufacturer, "Resonate"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}

func TestVersionIsSemver(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("expected major.minor.patch, got %q", Version)
	}
}
