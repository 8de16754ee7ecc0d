package ui

import (
	"bytes"
	"testing"
)

func TestSiteStatusPlain(t *testing.T) {
	var out, errOut bytes.Buffer
	u := New(&out, &errOut, ColorNever, false)

	u.SiteStatus("linkedin", "failed", 0, "site unavailable")
	u.SiteStatus("gupy", "completed", 12, "")

	want := "linkedin: failed (0 jobs): site unavailable\ngupy: completed (12 jobs)\n"
	if got := errOut.String(); got != want {
		t.Fatalf("SiteStatus() wrote %q, want %q", got, want)
	}
	if out.Len() != 0 {
		t.Fatalf("SiteStatus() wrote to stdout: %q", out.String())
	}
}

func TestNormalizeColorMode(t *testing.T) {
	cases := map[string]ColorMode{
		"":         ColorAuto,
		" ALWAYS ": ColorAlways,
		"never":    ColorNever,
		"bogus":    ColorAuto,
	}
	for in, want := range cases {
		if got := NormalizeColorMode(in); got != want {
			t.Fatalf("NormalizeColorMode(%q) = %q, want %q", in, got, want)
		}
	}
}
