package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Algorithm identifies the AEAD used for sealing.
type Algorithm string

const (
	AlgAESGCM   Algorithm = "aes-gcm"
	AlgChaCha20 Algorithm = "chacha20-poly1305"
)

// Errors returned by the sealer.
var (
	ErrKeyTooShort         = errors.New("sealer: master key too short (minimum 16 bytes)")
	ErrUnknownAlgorithm    = errors.New("sealer: unknown algorithm")
	ErrOpenFailed          = errors.New("sealer: open failed - wrong key or corrupted data")
	ErrSealedValueTooShort = errors.New("sealer: sealed value too short")
)

// MinKeyLength is the minimum master key length.
const MinKeyLength = 16

const subkeyLength = 32

// Tags prefixed to every sealed value.
const (
	tagAESGCM   byte = 0x01
	tagChaCha20 byte = 0x02
)

// Sealer provides authenticated encryption under one derived subkey.
// It is safe for concurrent use.
type Sealer struct {
	alg   Algorithm
	aeads map[byte]cipher.AEAD
}

// New derives a subkey for purpose and selects the platform's preferred
// algorithm for sealing.
func New(masterKey []byte, purpose string) (*Sealer, error) {
	return NewWithAlgorithm(masterKey, purpose, preferredAlgorithm())
}

// NewWithAlgorithm is New with an explicit sealing algorithm. Values sealed
// with either algorithm can be opened.
func NewWithAlgorithm(masterKey []byte, purpose string, alg Algorithm) (*Sealer, error) {
	if alg != AlgAESGCM && alg != AlgChaCha20 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}

	key, err := DeriveKey(masterKey, purpose, subkeyLength)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sealer: gcm: %w", err)
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: chacha20poly1305: %w", err)
	}

	return &Sealer{
		alg: alg,
		aeads: map[byte]cipher.AEAD{
			tagAESGCM:   gcm,
			tagChaCha20: chacha,
		},
	}, nil
}

// Algorithm returns the algorithm used by Seal.
func (s *Sealer) Algorithm() Algorithm {
	return s.alg
}

// Seal encrypts plaintext bound to additionalData.
// Layout: tag(1) | nonce | ciphertext+tag.
func (s *Sealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	tag := tagFor(s.alg)
	aead := s.aeads[tag]

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = tag
	nonce := out[1:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealer: nonce: %w", err)
	}

	return aead.Seal(out, nonce, plaintext, additionalData), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < 1 {
		return nil, ErrSealedValueTooShort
	}

	aead, ok := s.aeads[sealed[0]]
	if !ok {
		return nil, fmt.Errorf("%w: tag 0x%02x", ErrUnknownAlgorithm, sealed[0])
	}

	body := sealed[1:]
	if len(body) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrSealedValueTooShort
	}

	plaintext, err := aead.Open(nil, body[:aead.NonceSize()], body[aead.NonceSize():], additionalData)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// DeriveKey derives a subkey from a master key using HKDF-SHA256.
func DeriveKey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("sealer: derive key: %w", err)
	}
	return key, nil
}

func tagFor(alg Algorithm) byte {
	if alg == AlgChaCha20 {
		return tagChaCha20
	}
	return tagAESGCM
}

// preferredAlgorithm picks AES-GCM where Go's AES is hardware accelerated.
func preferredAlgorithm() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AlgAESGCM
	default:
		return AlgChaCha20
	}
}
