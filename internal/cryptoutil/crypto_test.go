// ABOUTME: Unit tests for the crypto primitive provider
// ABOUTME: Covers HMAC sign/verify, SHA-256 digests, and constant-time compare

package cryptoutil

import (
	"strings"
	"testing"
)

func TestSignVerify(t *testing.T) {
	p := NewProvider()
	key := []byte("0123456789abcdef0123456789abcdef")
	data := []byte("payload")

	sig := p.Sign(key, data)
	if len(sig) != 32 {
		t.Fatalf("Sign() returned %d bytes, want 32", len(sig))
	}

	if !p.Verify(key, data, sig) {
		t.Error("Verify() = false for a signature we just produced")
	}
	if p.Verify([]byte("another-key-another-key-another!"), data, sig) {
		t.Error("Verify() = true under the wrong key")
	}
	if p.Verify(key, []byte("tampered"), sig) {
		t.Error("Verify() = true for tampered data")
	}
}

func TestSHA256Hex(t *testing.T) {
	p := NewProvider()

	// Known vector: sha256("abc")
	got := p.SHA256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("SHA256Hex(abc) = %s, want %s", got, want)
	}

	if p.SHA256Hex([]byte("a")) == p.SHA256Hex([]byte("b")) {
		t.Error("distinct inputs produced equal digests")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	p := NewProvider()

	tests := []struct {
		a, b string
		want bool
	}{
		{"", "", true},
		{"alice", "alice", true},
		{"alice", "alicf", false},
		{"alice", "alic", false},
		{"", "x", false},
	}

	for _, tt := range tests {
		if got := p.ConstantTimeEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(16)
	if err != nil {
		t.Fatalf("RandomHex() error = %v", err)
	}
	if len(a) != 32 {
		t.Errorf("RandomHex(16) length = %d, want 32", len(a))
	}
	if strings.ToLower(a) != a {
		t.Error("RandomHex() should be lowercase hex")
	}

	b, _ := RandomHex(16)
	if a == b {
		t.Error("two RandomHex() calls returned the same value")
	}
}
