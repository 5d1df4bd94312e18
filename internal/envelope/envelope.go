// Package envelope performs password-derived authenticated encryption of
// drop payloads. The sealed blob is opaque: salt, nonce and ciphertext
// travel together so the password is the only input needed to open it.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize  = 32
	nonceSize = 12
	keySize   = 32
	tagSize   = 16

	// Deliberately slow to resist offline brute force against a
	// captured carrier image.
	pbkdf2Iterations = 100_000

	// Overhead is the fixed size added by sealing.
	Overhead = saltSize + nonceSize + tagSize

	// MinPasswordLength is the minimum accepted password size in bytes.
	MinPasswordLength = 8
)

// ErrAuthenticationFailed covers both a wrong password and tampered
// ciphertext. The two cases are deliberately indistinguishable so a
// caller cannot be used as a password oracle.
var ErrAuthenticationFailed = errors.New("envelope: authentication failed")

// DeriveKey stretches a password into an AES-256 key via PBKDF2-SHA256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, pbkdf2Iterations, keySize, sha256.New)
}

// CheckPassword validates minimal password requirements before sealing.
func CheckPassword(password []byte) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Seal encrypts payload under a key derived from password. The returned
// blob is salt || nonce || ciphertext+tag.
func Seal(payload, password []byte) ([]byte, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	blob := make([]byte, saltSize+nonceSize, saltSize+nonceSize+len(payload)+tagSize)
	if _, err := rand.Read(blob[:saltSize+nonceSize]); err != nil {
		return nil, err
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]

	aead, err := newAEAD(DeriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	return aead.Seal(blob, nonce, payload, nil), nil
}

// Open decrypts a sealed blob. Any failure — short blob, wrong password,
// flipped bit — comes back as ErrAuthenticationFailed and no plaintext
// byte is ever released.
func Open(blob, password []byte) ([]byte, error) {
	if len(blob) < Overhead {
		return nil, ErrAuthenticationFailed
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := newAEAD(DeriveKey(password, salt))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	payload, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return payload, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
