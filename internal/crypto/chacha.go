package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"dappconnect/internal/domain"
	"dappconnect/internal/util/memzero"
)

var chachaInfo = []byte("dappconnect chacha20poly1305 v1")

// ChaCha20Poly1305 seals with an AEAD keyed by HKDF-SHA256 over the session
// key. The nonce travels in IV and the Poly1305 tag in HMAC so the payload
// keeps the same shape as AESCBCHMAC.
type ChaCha20Poly1305 struct {
	// Rand supplies nonces; nil means crypto/rand.
	Rand io.Reader
}

// Encrypt seals plaintext under key.
func (c ChaCha20Poly1305) Encrypt(key, plaintext []byte) (domain.EncryptionPayload, error) {
	aead, err := c.aead(key)
	if err != nil {
		return domain.EncryptionPayload{}, err
	}

	r := c.Rand
	if r == nil {
		r = rand.Reader
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return domain.EncryptionPayload{}, fmt.Errorf("%w: read nonce: %v", domain.ErrCipher, err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - aead.Overhead()
	return domain.EncryptionPayload{
		Data: hex.EncodeToString(sealed[:split]),
		HMAC: hex.EncodeToString(sealed[split:]),
		IV:   hex.EncodeToString(nonce),
	}, nil
}

// Decrypt opens payload under key.
func (c ChaCha20Poly1305) Decrypt(key []byte, payload domain.EncryptionPayload) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}

	data, err := hex.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data: %v", domain.ErrCipher, err)
	}
	tag, err := hex.DecodeString(payload.HMAC)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tag: %v", domain.ErrCipher, err)
	}
	nonce, err := hex.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %v", domain.ErrCipher, err)
	}
	if len(nonce) != aead.NonceSize() || len(tag) != aead.Overhead() {
		return nil, fmt.Errorf("%w: bad nonce or tag length", domain.ErrCipher)
	}

	pt, err := aead.Open(nil, nonce, append(data, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCipher, err)
	}
	return pt, nil
}

func (ChaCha20Poly1305) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", domain.ErrCipher, len(key), KeySize)
	}
	derived := make([]byte, chacha20poly1305.KeySize)
	defer memzero.Zero(derived)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, chachaInfo), derived); err != nil {
		return nil, fmt.Errorf("%w: derive key: %v", domain.ErrCipher, err)
	}
	aead, err := chacha20poly1305.New(derived)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCipher, err)
	}
	return aead, nil
}

var _ domain.Cipher = ChaCha20Poly1305{}
