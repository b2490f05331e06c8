package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSha256(t *testing.T) {
	got := Sha256([]byte("abc"))
	want, _ := hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if !bytes.Equal(got, want) {
		t.Errorf("Sha256(abc) = %x, want %x", got, want)
	}
}

func TestDoubleSha256(t *testing.T) {
	got := DoubleSha256([]byte("hello"))
	if len(got) != 32 {
		t.Fatalf("DoubleSha256() length = %d, want 32", len(got))
	}
	want := Sha256(Sha256([]byte("hello")))
	if !bytes.Equal(got, want) {
		t.Error("DoubleSha256() does not match two applications of Sha256()")
	}
}

func TestHash160(t *testing.T) {
	data := []byte("test public key bytes")
	got := Hash160(data)
	if len(got) != 20 {
		t.Fatalf("Hash160() length = %d, want 20", len(got))
	}
	want := Ripemd160(Sha256(data))
	if !bytes.Equal(got, want) {
		t.Error("Hash160() does not match RIPEMD160(SHA256(x))")
	}
}

func TestHmacSha512(t *testing.T) {
	got := HmacSha512([]byte("key"), []byte("data"))
	if len(got) != 64 {
		t.Fatalf("HmacSha512() length = %d, want 64", len(got))
	}
	// Deterministic: same inputs produce the same output.
	again := HmacSha512([]byte("key"), []byte("data"))
	if !bytes.Equal(got, again) {
		t.Error("HmacSha512() not deterministic")
	}
}

func TestSecureZero(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	SecureZero(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d = %d, want 0", i, v)
		}
	}
}

func TestSecureZero_Empty(t *testing.T) {
	SecureZero(nil)
	SecureZero([]byte{})
}
