// Package vault provides authenticated encryption for stored course credentials.
//
// Secrets are encrypted with AES-256-GCM under a single process-wide key read
// from configuration. Each encryption uses a fresh random 16-byte nonce, and
// the GCM tag is kept as a separate field so tampering with any of the three
// persisted values is detected on decryption.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"coursevault/internal/models"
)

const (
	// KeySize is the required symmetric key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the nonce length in bytes used for every encryption.
	NonceSize = 16
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

var (
	// ErrMissingKey indicates the vault key was not configured.
	ErrMissingKey = errors.New("vault: encryption key is not configured")
	// ErrInvalidKeySize indicates the configured key does not decode to 32 bytes.
	ErrInvalidKeySize = errors.New("vault: encryption key must be 32 bytes")
	// ErrAuthenticationFailed indicates the ciphertext, nonce or tag did not
	// verify: the data was tampered with, corrupted, or encrypted under a
	// different key. No plaintext is returned in this case.
	ErrAuthenticationFailed = errors.New("vault: authentication failed")
	// ErrMalformedInput indicates a decrypt field is not valid hex or has an
	// unexpected length.
	ErrMalformedInput = errors.New("vault: malformed input")
)

// Vault performs reversible authenticated encryption of small secret strings.
type Vault struct {
	aead cipher.AEAD
}

// New constructs a Vault from a hex-encoded 256-bit key.
// Returns ErrMissingKey for an empty key and ErrInvalidKeySize when the
// decoded key is not exactly 32 bytes.
func New(hexKey string) (*Vault, error) {
	if hexKey == "" {
		return nil, ErrMissingKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt encrypts plaintext under a fresh random nonce and returns the
// hex-encoded ciphertext, nonce and authentication tag. Encrypting the same
// plaintext twice yields different nonces and different ciphertexts.
func (v *Vault) Encrypt(plaintext string) (models.EncryptedSecret, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return models.EncryptedSecret{}, fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends the tag to the ciphertext; split them so the tag is
	// persisted as its own column.
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return models.EncryptedSecret{
		Ciphertext: hex.EncodeToString(ciphertext),
		Nonce:      hex.EncodeToString(nonce),
		AuthTag:    hex.EncodeToString(tag),
	}, nil
}

// Decrypt reverses Encrypt. It returns ErrMalformedInput when any field is not
// valid hex or the nonce/tag have the wrong length, and ErrAuthenticationFailed
// when the tag does not verify. On verification failure no partial plaintext is
// ever returned.
func (v *Vault) Decrypt(secret models.EncryptedSecret) (string, error) {
	ciphertext, err := hex.DecodeString(secret.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformedInput, err)
	}
	nonce, err := hex.DecodeString(secret.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrMalformedInput, err)
	}
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrMalformedInput, NonceSize, len(nonce))
	}
	tag, err := hex.DecodeString(secret.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%w: tag: %v", ErrMalformedInput, err)
	}
	if len(tag) != TagSize {
		return "", fmt.Errorf("%w: tag must be %d bytes, got %d", ErrMalformedInput, TagSize, len(tag))
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}
