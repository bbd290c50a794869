// Package crypto provides the AES-256-GCM envelope used to store OAuth
// client secrets at rest, plus key/secret generation helpers.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// envelopePrefix marks ciphertext so plaintext rows (from deployments
// without an encryption key) are never fed to the decryptor.
const envelopePrefix = "enc:"

// Keeper encrypts and decrypts secrets with a fixed 32-byte master key.
// A nil Keeper (no key configured) passes values through unchanged.
type Keeper struct {
	key []byte
}

// NewKeeper parses a hex-encoded 32-byte master key.
func NewKeeper(keyHex string) (*Keeper, error) {
	if len(keyHex) != 64 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (64 hex characters)")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key (must be hex): %w", err)
	}
	return &Keeper{key: key}, nil
}

// Encrypt seals plaintext with AES-256-GCM and returns an "enc:"-prefixed
// base64 envelope. A fresh random nonce is generated per call and prepended
// to the ciphertext; nonce reuse would break GCM entirely.
func (k *Keeper) Encrypt(plaintext string) (string, error) {
	if k == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(k.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM mode: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope produced by Encrypt. Values without the "enc:"
// prefix are returned as-is: they predate encryption being configured.
// GCM authenticates before decrypting, so tampered rows fail here.
func (k *Keeper) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, envelopePrefix) {
		return stored, nil
	}
	if k == nil {
		return "", fmt.Errorf("encrypted secret present but no encryption key configured")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(stored[len(envelopePrefix):])
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}

	block, err := aes.NewCipher(k.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short (possible corruption or tampering)")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed (invalid key or tampered data): %w", err)
	}

	return string(plaintext), nil
}

// GenerateKey generates a new 32-byte AES master key in hex format.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// GenerateSigningSecret generates a project signing secret: 32 random bytes,
// base64-encoded for storage. Consumers decode it back to raw bytes before
// keying the HMAC.
func GenerateSigningSecret() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secret), nil
}
