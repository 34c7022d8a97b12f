package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"dappconnect/internal/domain"
)

// AESCBCHMAC encrypts with AES-256-CBC under a random IV and authenticates
// ciphertext||iv with HMAC-SHA256 under the same key.
type AESCBCHMAC struct {
	// Rand supplies IVs; nil means crypto/rand.
	Rand io.Reader
}

// Encrypt seals plaintext under key.
func (c AESCBCHMAC) Encrypt(key, plaintext []byte) (domain.EncryptionPayload, error) {
	block, err := newAES(key)
	if err != nil {
		return domain.EncryptionPayload{}, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand(), iv); err != nil {
		return domain.EncryptionPayload{}, fmt.Errorf("%w: read iv: %v", domain.ErrCipher, err)
	}

	data := pkcs7Pad(plaintext, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)

	return domain.EncryptionPayload{
		Data: hex.EncodeToString(data),
		HMAC: hex.EncodeToString(mac(key, data, iv)),
		IV:   hex.EncodeToString(iv),
	}, nil
}

// Decrypt verifies and opens payload under key.
func (c AESCBCHMAC) Decrypt(key []byte, payload domain.EncryptionPayload) ([]byte, error) {
	block, err := newAES(key)
	if err != nil {
		return nil, err
	}

	data, err := hex.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data: %v", domain.ErrCipher, err)
	}
	iv, err := hex.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: decode iv: %v", domain.ErrCipher, err)
	}
	tag, err := hex.DecodeString(payload.HMAC)
	if err != nil {
		return nil, fmt.Errorf("%w: decode hmac: %v", domain.ErrCipher, err)
	}

	if !hmac.Equal(tag, mac(key, data, iv)) {
		return nil, fmt.Errorf("%w: hmac mismatch", domain.ErrCipher)
	}
	if len(iv) != aes.BlockSize || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext length", domain.ErrCipher)
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs7Unpad(out, aes.BlockSize)
}

func (c AESCBCHMAC) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

func newAES(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", domain.ErrCipher, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCipher, err)
	}
	return block, nil
}

func mac(key, data, iv []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	h.Write(iv)
	return h.Sum(nil)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: bad padding", domain.ErrCipher)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: bad padding", domain.ErrCipher)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", domain.ErrCipher)
		}
	}
	return b[:len(b)-n], nil
}

var _ domain.Cipher = AESCBCHMAC{}
