package crypto

import (
	"fmt"

	"dappconnect/internal/domain"
)

// Cipher names accepted by ByName.
const (
	CipherAESCBCHMAC       = "aes-256-cbc-hmac"
	CipherChaCha20Poly1305 = "chacha20poly1305"
)

// ByName returns the cipher registered under name. An empty name selects
// AES-256-CBC with HMAC.
func ByName(name string) (domain.Cipher, error) {
	switch name {
	case "", CipherAESCBCHMAC:
		return AESCBCHMAC{}, nil
	case CipherChaCha20Poly1305:
		return ChaCha20Poly1305{}, nil
	default:
		return nil, fmt.Errorf("unknown cipher %q", name)
	}
}
