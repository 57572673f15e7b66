package sessions

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// SealedKV encrypts values before handing them to the wrapped KV. The key is the
// SHA-256 of a shared secret.
type SealedKV struct {
	inner KV
	aead  cipher.AEAD
}

var _ KV = (*SealedKV)(nil)

func NewSealedKV(inner KV, secret string) (*SealedKV, error) {
	if secret == "" {
		return nil, errors.New("[NewSealedKV] secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "[NewSealedKV]")
	}
	return &SealedKV{inner: inner, aead: aead}, nil
}

// Get returns ErrCorruptValue when the value was not sealed with this secret.
func (s *SealedKV) Get(key string) (string, bool, error) {
	raw, found, err := s.inner.Get(key)
	if err != nil || !found {
		return "", found, err
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", true, ErrCorruptValue
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", true, ErrCorruptValue
	}
	return string(plain), true, nil
}

func (s *SealedKV) Set(key, value string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[SealedKV.Set] nonce")
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(key, base64.StdEncoding.EncodeToString(sealed))
}

func (s *SealedKV) Remove(key string) error {
	return s.inner.Remove(key)
}
