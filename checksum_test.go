package evnet

import "testing"

func TestChecksumIsDeterministic(t *testing.T) {
	buf := []byte("the quick brown fox jumps over the lazy dog")
	a := Checksum(buf)
	b := Checksum(buf)
	if a != b {
		t.Fatalf("Checksum not deterministic: %d != %d", a, b)
	}
}

func TestChecksumDiffersOnMutation(t *testing.T) {
	buf := append([]byte(nil), "payload one"...)
	before := Checksum(buf)
	buf[0] ^= 0xFF
	after := Checksum(buf)
	if before == after {
		t.Fatalf("Checksum did not change after mutating a byte")
	}
}
