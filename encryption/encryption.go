// Package encryption protects OAuth tokens and installation secrets at rest
// with authenticated symmetric encryption.
package encryption

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// KeyLen is the required key size in bytes.
const KeyLen = chacha20poly1305.KeySize

// Provider encrypts and decrypts opaque payloads with XChaCha20-Poly1305.
// Ciphertext layout is nonce || sealed payload.
type Provider struct {
	key [KeyLen]byte
}

// New resolves the encryption key and returns a Provider. The key is taken
// from the first available source:
//  1. the explicit key argument (base64, as produced by GenerateKey)
//  2. the configured environment key (passed in by the caller's config)
//  3. an ephemeral random key, with a loud warning
//
// An ephemeral key makes every previously stored ciphertext unreadable after
// restart. That is intentional: losing tokens loudly beats keeping them
// unprotected or silently corrupting them.
func New(explicitKey, envKey string) (*Provider, error) {
	raw := explicitKey
	if raw == "" {
		raw = envKey
	}

	p := &Provider{}
	if raw == "" {
		if _, err := rand.Read(p.key[:]); err != nil {
			return nil, kiterrors.Wrapf(err, "encryption.New generate ephemeral key")
		}
		log.Warn().Msg("no encryption key configured, using ephemeral key; stored tokens and secrets will be unreadable after restart")
		return p, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrConfiguration, "encryption key is not valid base64")
	}
	if len(decoded) != KeyLen {
		return nil, kiterrors.Wrapf(kiterrors.ErrConfiguration, "encryption key must be %d bytes, got %d", KeyLen, len(decoded))
	}
	copy(p.key[:], decoded)
	return p, nil
}

// Encrypt seals plaintext with a random nonce.
func (p *Provider) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(p.key[:])
	if err != nil {
		return nil, kiterrors.Wrapf(err, "encryption.Encrypt")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, kiterrors.Wrapf(err, "encryption.Encrypt nonce")
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt. Tampered or wrong-key
// ciphertext fails with ErrDecryption.
func (p *Provider) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return nil, kiterrors.Wrapf(kiterrors.ErrDecryption, "ciphertext too short")
	}
	aead, err := chacha20poly1305.NewX(p.key[:])
	if err != nil {
		return nil, kiterrors.Wrapf(err, "encryption.Decrypt")
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	sealed := ciphertext[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrDecryption, "%v", err)
	}
	return plaintext, nil
}

// GenerateKey returns a new random base64-encoded key suitable for the
// encryption key environment variable.
func GenerateKey() (string, error) {
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		return "", kiterrors.Wrapf(err, "encryption.GenerateKey")
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
