package validators

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestSanitizeCodeTrimsScannerSuffix(t *testing.T) {
	if got := SanitizeCode("  PF-00012\n\t"); got != "PF-00012" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := SanitizeCode(strings.Repeat("A", maxCodeLength+10)); len(got) != maxCodeLength {
		t.Fatalf("expected code capped at %d, got %d", maxCodeLength, len(got))
	}
}

func TestSanitizeBin(t *testing.T) {
	got := SanitizeBin(strPtr("  shelf   b\t3 "))
	if got == nil || *got != "SHELF B 3" {
		t.Fatalf("unexpected bin %v", got)
	}
	if SanitizeBin(strPtr("   ")) != nil {
		t.Fatal("blank bin should clear")
	}
	if SanitizeBin(nil) != nil {
		t.Fatal("nil bin should stay nil")
	}
}

func TestSanitizeNotes(t *testing.T) {
	got := SanitizeNotes(strPtr(" seal torn "))
	if got == nil || *got != "seal torn" {
		t.Fatalf("unexpected notes %v", got)
	}
	if SanitizeNotes(strPtr("\n")) != nil {
		t.Fatal("blank notes should clear")
	}
}
