// Package crypto implements the session ciphers and key handling.
//
// Contents
//
//   - Session key generation and hex decoding (GenerateKey, KeyFromHex)
//   - AES-256-CBC with HMAC-SHA256, the cipher wallets expect (AESCBCHMAC)
//   - ChaCha20-Poly1305 with an HKDF-derived key (ChaCha20Poly1305)
//   - Cipher lookup by configuration name (ByName)
//
// # Notes
//
// Both ciphers produce a domain.EncryptionPayload of hex strings and fail
// with domain.ErrCipher on malformed input, a wrong key or any tampering.
// Derived key material is wiped with memzero after use.
package crypto
