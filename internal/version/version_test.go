package appversion_test

import (
	"strings"
	"testing"

	appversion "github.com/dantte-lp/netprobe/internal/version"
)

func TestFull(t *testing.T) {
	t.Parallel()

	out := appversion.Full("netprobe")

	if !strings.HasPrefix(out, "netprobe ") {
		t.Errorf("Full() = %q, want binary name prefix", out)
	}
	if !strings.Contains(out, appversion.Version) {
		t.Errorf("Full() = %q, want version %q", out, appversion.Version)
	}
	if !strings.Contains(out, "commit:") {
		t.Errorf("Full() = %q, want commit line", out)
	}
	if !strings.Contains(out, "built:") {
		t.Errorf("Full() = %q, want build date line", out)
	}
}
