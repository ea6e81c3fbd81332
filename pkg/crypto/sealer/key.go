package sealer

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// GeneratedKeyLength is the size of keys created by LoadOrCreateKey.
const GeneratedKeyLength = 32

// LoadOrCreateKey reads a hex-encoded master key from path. If the file does
// not exist a random key is generated and written with mode 0600.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return decodeKey(path, data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("sealer: read key file: %w", err)
	}

	key := make([]byte, GeneratedKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("sealer: generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sealer: create key dir: %w", err)
	}

	// O_EXCL so two processes racing on first run don't clobber each other.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return LoadOrCreateKey(path)
		}
		return nil, fmt.Errorf("sealer: create key file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return nil, fmt.Errorf("sealer: write key file: %w", err)
	}
	return key, nil
}

func decodeKey(path string, data []byte) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("sealer: key file %s is not hex: %w", path, err)
	}
	if len(key) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	return key, nil
}
