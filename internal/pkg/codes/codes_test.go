package codes

import (
	"strings"
	"testing"
)

func TestOrderNumberShape(t *testing.T) {
	n := OrderNumber(2026)
	parts := strings.Split(n, "-")
	if len(parts) != 3 || parts[0] != "BOR" || parts[1] != "2026" {
		t.Fatalf("unexpected order number %q", n)
	}
	if len(parts[2]) != 6 {
		t.Fatalf("expected 6-char suffix, got %q", parts[2])
	}
	for _, r := range parts[2] {
		if strings.ContainsRune("01OIL U", r) {
			t.Fatalf("ambiguous character %q in %q", r, n)
		}
	}
}

func TestVoucher(t *testing.T) {
	code := Voucher("spkr")
	if !strings.HasPrefix(code, "SPKR-") {
		t.Fatalf("expected SPKR- prefix, got %q", code)
	}
	if len(code) != len("SPKR-")+8 {
		t.Fatalf("unexpected length for %q", code)
	}
	if bare := Voucher(""); strings.Contains(bare, "-") || len(bare) != 8 {
		t.Fatalf("bare voucher malformed: %q", bare)
	}
}

func TestVoucherUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c := Voucher("X")
		if seen[c] {
			t.Fatalf("duplicate voucher code %q", c)
		}
		seen[c] = true
	}
}

func TestRandomKeepsLengthAcrossRejections(t *testing.T) {
	for i := 0; i < 500; i++ {
		if got := random(12); len(got) != 12 {
			t.Fatalf("len = %d, want 12", len(got))
		}
	}
}

func TestRandomStaysInAlphabet(t *testing.T) {
	for _, r := range random(4096) {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("character %q not in alphabet", r)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  spkr-abc "); got != "SPKR-ABC" {
		t.Fatalf("Normalize: got %q", got)
	}
}
