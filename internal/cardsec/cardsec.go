// internal/cardsec/cardsec.go
//
// Package cardsec keeps card numbers confidential at the service boundary:
// numbers are encrypted before they reach the repository and masked on every
// read path. The ledger itself never sees plaintext numbers, so its
// invariants stay testable without cryptographic primitives.
package cardsec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

var numberPattern = regexp.MustCompile(`^[0-9]{16}$`)

// ValidNumber reports whether s is a well-formed 16-digit card number.
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// Mask returns the display form of a card number, keeping only the last four
// digits.
func Mask(number string) string {
	if len(number) < 4 {
		return "**** **** **** ****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

// Cipher encrypts card numbers for storage and derives deterministic digests
// for uniqueness checks and lookups.
type Cipher struct {
	encKey  []byte
	hmacKey []byte
}

// NewCipher creates a Cipher. The encryption key must be 16, 24 or 32 bytes
// (AES-128/192/256).
func NewCipher(encKey, hmacKey []byte) (*Cipher, error) {
	switch len(encKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(encKey))
	}
	if len(hmacKey) == 0 {
		return nil, fmt.Errorf("hmac key must not be empty")
	}
	return &Cipher{encKey: encKey, hmacKey: hmacKey}, nil
}

// Digest returns a hex-encoded HMAC-SHA256 of the card number. The digest is
// deterministic, so equal numbers always map to the same column value.
func (c *Cipher) Digest(number string) string {
	h := hmac.New(sha256.New, c.hmacKey)
	h.Write([]byte(number))
	return hex.EncodeToString(h.Sum(nil))
}

// Encrypt encrypts a card number with AES-CBC and a random IV, returning a
// hex string of IV||ciphertext.
func (c *Cipher) Encrypt(number string) (string, error) {
	if number == "" {
		return "", fmt.Errorf("input data is empty")
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// PKCS#7 padding
	data := []byte(number)
	padding := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return hex.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(plaintext) {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding bytes")
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
