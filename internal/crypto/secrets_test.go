package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptDecryptRoundtrip(t *testing.T) {
	keeper, err := NewKeeper(testKey)
	if err != nil {
		t.Fatalf("NewKeeper failed: %v", err)
	}

	plaintext := "oauth-client-secret-3a9f"

	encrypted, err := keeper.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	if !strings.HasPrefix(encrypted, "enc:") {
		t.Errorf("Encrypted output missing 'enc:' prefix: %s", encrypted)
	}

	decrypted, err := keeper.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Decrypted text doesn't match original.\nGot: %s\nWant: %s", decrypted, plaintext)
	}
}

func TestDecryptPassesThroughPlaintext(t *testing.T) {
	keeper, _ := NewKeeper(testKey)

	// Rows written before encryption was configured carry no prefix.
	out, err := keeper.Decrypt("legacy-plaintext-secret")
	if err != nil {
		t.Fatalf("Plaintext passthrough failed: %v", err)
	}
	if out != "legacy-plaintext-secret" {
		t.Errorf("Plaintext was altered: %s", out)
	}
}

func TestNilKeeperPassesThrough(t *testing.T) {
	var keeper *Keeper

	enc, err := keeper.Encrypt("secret")
	if err != nil || enc != "secret" {
		t.Errorf("nil Keeper should store as-is, got (%q, %v)", enc, err)
	}

	if _, err := keeper.Decrypt("enc:abc"); err == nil {
		t.Error("Expected error decrypting an envelope without a key, got nil")
	}
}

func TestDecryptTamperedData(t *testing.T) {
	keeper, _ := NewKeeper(testKey)

	encrypted, _ := keeper.Encrypt("test")
	tampered := encrypted[:len(encrypted)-5] + "XXXXX"

	if _, err := keeper.Decrypt(tampered); err == nil {
		t.Error("Expected error for tampered ciphertext, got nil")
	}
}

func TestNewKeeperRejectsBadKeys(t *testing.T) {
	if _, err := NewKeeper("short"); err == nil {
		t.Error("Expected error for short key, got nil")
	}
	if _, err := NewKeeper(strings.Repeat("z", 64)); err == nil {
		t.Error("Expected error for non-hex key, got nil")
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if len(key) != 64 {
		t.Errorf("Generated key has wrong length. Got %d, want 64", len(key))
	}
	if _, err := NewKeeper(key); err != nil {
		t.Errorf("Generated key rejected by NewKeeper: %v", err)
	}
}

func TestGenerateSigningSecret(t *testing.T) {
	secret, err := GenerateSigningSecret()
	if err != nil {
		t.Fatalf("GenerateSigningSecret failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		t.Fatalf("Signing secret is not valid base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("Signing secret has %d raw bytes, want 32", len(raw))
	}
}
