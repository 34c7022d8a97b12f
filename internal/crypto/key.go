package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// KeySize is the length of a session key in bytes.
const KeySize = 32

// GenerateKey reads a fresh session key from r, or crypto/rand when r is nil.
func GenerateKey(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// KeyFromHex decodes a hex session key and checks its length.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("session key is %d bytes, want %d", len(key), KeySize)
	}
	return key, nil
}
