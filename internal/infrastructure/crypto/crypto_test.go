package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "01234567890123456789012345678901" // 32 bytes for AES-256

func TestNewEncryptor_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "too-short", testKey + "x"} {
		_, err := NewEncryptor(key)
		if !errors.Is(err, ErrInvalidKey) {
			t.Errorf("NewEncryptor(%q) error = %v, want %v", key, err, ErrInvalidKey)
		}
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("NewEncryptor() failed: %v", err)
	}

	plaintext := "access-sandbox-8ab976e6-64bc-4b38-98f7-731e7a349970"
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if ciphertext == plaintext {
		t.Error("Encrypt() returned plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEmptyValues(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	for name, fn := range map[string]func(string) (string, error){
		"Encrypt": enc.Encrypt,
		"Decrypt": enc.Decrypt,
		"Seal":    enc.Seal,
		"Open":    enc.Open,
	} {
		got, err := fn("")
		if err != nil || got != "" {
			t.Errorf("%s(\"\") = %q, %v; want empty, nil", name, got, err)
		}
	}
}

func TestEncrypt_DifferentCiphertexts(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("same text")
	c2, _ := enc.Encrypt("same text")

	if c1 == c2 {
		t.Error("Encrypt() produced identical ciphertexts for same plaintext (nonce should differ)")
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	ciphertext, _ := enc.Encrypt("secret data")

	tampered := ciphertext[:len(ciphertext)-2] + "XX"
	if _, err := enc.Decrypt(tampered); err == nil {
		t.Error("Decrypt() accepted tampered ciphertext")
	}
}

func TestDecrypt_InvalidInput(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	if _, err := enc.Decrypt("not-valid-base64!!!"); err == nil {
		t.Error("Decrypt() accepted invalid base64")
	}
	if _, err := enc.Decrypt("YQ=="); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("Decrypt() short input error = %v, want %v", err, ErrInvalidCiphertext)
	}
}

func TestEncryptDecrypt_LongContent(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	plaintext := strings.Repeat("long content ", 1000)
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed with long content: %v", err)
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() failed with long content: %v", err)
	}
	if decrypted != plaintext {
		t.Error("Long content roundtrip failed")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, _ := NewEncryptor(testKey)
	enc2, _ := NewEncryptor("98765432109876543210987654321098")

	ciphertext, _ := enc1.Encrypt("encrypted with key1")

	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() succeeded with wrong key")
	}
}

func TestSeal_Deterministic(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	s1, err := enc.Seal("vzeNDwK7KQIm4yEog683uElxwnD1PRFLPRgvr")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	s2, _ := enc.Seal("vzeNDwK7KQIm4yEog683uElxwnD1PRFLPRgvr")
	if s1 != s2 {
		t.Errorf("Seal() not deterministic: %q != %q", s1, s2)
	}

	other, _ := enc.Seal("different-account")
	if other == s1 {
		t.Error("Seal() produced the same output for different inputs")
	}

	if strings.ContainsAny(s1, "+/=") {
		t.Errorf("Seal() output %q is not URL-safe", s1)
	}
}

func TestSealOpen_Roundtrip(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	sealed, _ := enc.Seal("acc_123")
	if sealed == "acc_123" || strings.Contains(sealed, "acc_123") {
		t.Errorf("Seal() leaks plaintext: %q", sealed)
	}

	got, err := enc.Open(sealed)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if got != "acc_123" {
		t.Errorf("Open() = %q, want acc_123", got)
	}
}

func TestOpen_RequiresKey(t *testing.T) {
	enc1, _ := NewEncryptor(testKey)
	enc2, _ := NewEncryptor("98765432109876543210987654321098")

	sealed, _ := enc1.Seal("acc_123")
	if _, err := enc2.Open(sealed); err == nil {
		t.Error("Open() succeeded with wrong key")
	}

	other, _ := enc2.Seal("acc_123")
	if other == sealed {
		t.Error("different keys produced the same sealed value")
	}
}

func TestOpen_RejectsRandomCiphertext(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	if _, err := enc.Open("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"); err == nil {
		t.Error("Open() accepted forged value")
	}
	if _, err := enc.Open("***"); err == nil {
		t.Error("Open() accepted invalid encoding")
	}
}
