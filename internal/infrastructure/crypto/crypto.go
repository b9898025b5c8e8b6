package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Encryptor holds two AES-256-GCM keys derived from one master key: one for
// randomized sealing of secrets at rest and one for deterministic sealing of
// identifiers that must stay stable across calls.
type Encryptor struct {
	random        cipher.AEAD
	deterministic cipher.AEAD
	nonceKey      []byte
}

func NewEncryptor(key string) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	kdf := hkdf.New(sha256.New, []byte(key), nil, []byte("horizon encryptor v1"))
	var randomKey, detKey, nonceKey [32]byte
	for _, k := range [][]byte{randomKey[:], detKey[:], nonceKey[:]} {
		if _, err := io.ReadFull(kdf, k); err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
	}

	random, err := newGCM(randomKey[:])
	if err != nil {
		return nil, err
	}
	deterministic, err := newGCM(detKey[:])
	if err != nil {
		return nil, err
	}

	return &Encryptor{
		random:        random,
		deterministic: deterministic,
		nonceKey:      nonceKey[:],
	}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns base64.
// Empty input yields empty output.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.random.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.random.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	return open(e.random, data)
}

// Seal encrypts plaintext deterministically: equal inputs produce equal,
// URL-safe outputs. The nonce is an HMAC of the plaintext, so only
// holders of the key can reverse or forge values.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := e.syntheticNonce([]byte(plaintext))
	sealed := e.deterministic.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}

	plaintext, err := open(e.deterministic, data)
	if err != nil {
		return "", err
	}

	nonce := data[:e.deterministic.NonceSize()]
	if !hmac.Equal(nonce, e.syntheticNonce([]byte(plaintext))) {
		return "", ErrInvalidCiphertext
	}
	return plaintext, nil
}

func (e *Encryptor) syntheticNonce(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, e.nonceKey)
	mac.Write(plaintext)
	return mac.Sum(nil)[:e.deterministic.NonceSize()]
}

func open(aead cipher.AEAD, data []byte) (string, error) {
	nonceSize := aead.NonceSize()
	if len(data) < nonceSize+aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return string(plaintext), nil
}
