package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplateAndUserAgent(t *testing.T) {
	if !strings.Contains(Template(), Version) {
		t.Errorf("Template() = %q, want version %q", Template(), Version)
	}
	if got := UserAgent(); got != "libresolve/"+Version {
		t.Errorf("UserAgent() = %q", got)
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q", String())
	}
}
