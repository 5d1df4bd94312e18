package envelope

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	payload := []byte("the eagle has landed")
	password := []byte("correct horse battery staple")

	blob, err := Seal(payload, password)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(blob) != len(payload)+Overhead {
		t.Fatalf("expected blob of %d bytes, got %d", len(payload)+Overhead, len(blob))
	}

	got, err := Open(blob, password)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestOpenWrongPassword(t *testing.T) {
	payload := []byte("meeting at midnight")
	blob, err := Seal(payload, []byte("password-one"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	got, err := Open(blob, []byte("password-two"))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if got != nil {
		t.Fatal("wrong password must not return any plaintext")
	}
}

func TestOpenTamperedCiphertext(t *testing.T) {
	password := []byte("shared-secret-1")
	blob, err := Seal([]byte("payload bytes"), password)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	// Flip one bit anywhere past the salt; wrong password and tampered
	// data must be indistinguishable.
	for _, idx := range []int{len(blob) - 1, len(blob) / 2, Overhead} {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[idx] ^= 0x01

		got, err := Open(tampered, password)
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("tamper at %d: expected ErrAuthenticationFailed, got %v", idx, err)
		}
		if got != nil {
			t.Fatalf("tamper at %d: plaintext leaked", idx)
		}
	}
}

func TestOpenTruncatedBlob(t *testing.T) {
	if _, err := Open([]byte("short"), []byte("any-password")); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if _, err := Open(nil, []byte("any-password")); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for nil blob, got %v", err)
	}
}

func TestSealEmptyPayload(t *testing.T) {
	password := []byte("long enough password")
	blob, err := Seal(nil, password)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := Open(blob, password)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(got))
	}
}

func TestSealRejectsShortPassword(t *testing.T) {
	if _, err := Seal([]byte("data"), []byte("short")); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestSealUsesFreshSaltAndNonce(t *testing.T) {
	payload := []byte("same payload")
	password := []byte("same password")

	a, err := Seal(payload, password)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal(payload, password)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same payload produced identical blobs")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, 32)
	k1 := DeriveKey([]byte("pass"), salt)
	k2 := DeriveKey([]byte("pass"), salt)
	if !bytes.Equal(k1, k2) {
		t.Fatal("same password and salt must derive the same key")
	}
	k3 := DeriveKey([]byte("pass"), bytes.Repeat([]byte{0x43}, 32))
	if bytes.Equal(k1, k3) {
		t.Fatal("different salts must derive different keys")
	}
}
