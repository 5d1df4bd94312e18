package stego

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	payload := make([]byte, n)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return payload
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	carrier := GenerateCarrier(64, 48)
	for bpc := MinBitsPerChannel; bpc <= MaxBitsPerChannel; bpc++ {
		payload := randomPayload(t, Capacity(64, 48, bpc))

		stego, err := Embed(carrier, payload, bpc)
		if err != nil {
			t.Fatalf("embed at %d bpc: %v", bpc, err)
		}
		got, err := Extract(stego, bpc)
		if err != nil {
			t.Fatalf("extract at %d bpc: %v", bpc, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch at %d bpc", bpc)
		}
	}
}

func TestEmbedExtractSmallPayloads(t *testing.T) {
	carrier := GenerateCarrier(32, 24)
	for _, n := range []int{0, 1, 2, 7, 8, 9, 100} {
		payload := randomPayload(t, n)
		stego, err := Embed(carrier, payload, 2)
		if err != nil {
			t.Fatalf("embed %d bytes: %v", n, err)
		}
		got, err := Extract(stego, 2)
		if err != nil {
			t.Fatalf("extract %d bytes: %v", n, err)
		}
		if len(got) != n || !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch for %d bytes", n)
		}
	}
}

func TestRoundTripSurvivesPNGEncode(t *testing.T) {
	carrier := GenerateCarrier(48, 36)
	payload := randomPayload(t, 512)

	stego, err := Embed(carrier, payload, 3)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	encoded, err := EncodePNG(stego)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCarrier(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := Extract(decoded, 3)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload did not survive PNG encode/decode")
	}
}

func TestEmbedRejectsOversizedPayload(t *testing.T) {
	carrier := GenerateCarrier(16, 12)
	for bpc := MinBitsPerChannel; bpc <= MaxBitsPerChannel; bpc++ {
		payload := randomPayload(t, Capacity(16, 12, bpc)+1)
		if _, err := Embed(carrier, payload, bpc); err != ErrCapacityExceeded {
			t.Fatalf("expected ErrCapacityExceeded at %d bpc, got %v", bpc, err)
		}
	}
}

func TestEmbedRejectsInvalidBitDepth(t *testing.T) {
	carrier := GenerateCarrier(16, 12)
	for _, bpc := range []int{0, -1, 5, 8} {
		if _, err := Embed(carrier, []byte("x"), bpc); err != ErrInvalidBitDepth {
			t.Fatalf("expected ErrInvalidBitDepth for %d, got %v", bpc, err)
		}
		if _, err := Extract(carrier, bpc); err != ErrInvalidBitDepth {
			t.Fatalf("expected ErrInvalidBitDepth for extract %d, got %v", bpc, err)
		}
	}
}

func TestExtractRejectsPlainImage(t *testing.T) {
	plain := GenerateCarrier(32, 24)
	if _, err := Extract(plain, 1); err != ErrNoPayload {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestDecodeCarrierRejectsLossyFormats(t *testing.T) {
	cases := map[string][]byte{
		"jpeg":    {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
		"gif":     []byte("GIF89a\x01\x00\x01\x00"),
		"webp":    []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
		"garbage": []byte("not an image at all"),
	}
	for name, data := range cases {
		if _, err := DecodeCarrier(data); err != ErrUnsupportedCarrier {
			t.Fatalf("%s: expected ErrUnsupportedCarrier, got %v", name, err)
		}
	}
}

func TestDecodeCarrierAcceptsPNG(t *testing.T) {
	encoded, err := EncodePNG(GenerateCarrier(20, 15))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := DecodeCarrier(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 15 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestEmbedDoesNotModifyCarrier(t *testing.T) {
	carrier := GenerateCarrier(16, 12)
	before := make([]byte, len(carrier.Pix))
	copy(before, carrier.Pix)

	if _, err := Embed(carrier, randomPayload(t, 32), 2); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !bytes.Equal(before, carrier.Pix) {
		t.Fatal("embed mutated the input carrier")
	}
}
