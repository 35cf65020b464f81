package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"newsroom/domain/model"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	formatV1     byte = 1
	minMasterKey      = 32
)

var (
	hkdfSalt = []byte("newsroom-vault")
	hkdfInfo = []byte("credential-v1")

	ErrMasterKeyMissing   = errors.New("vault master key missing")
	ErrMasterKeyMalformed = errors.New("vault master key malformed")
)

// Vault seals secrets with XChaCha20-Poly1305 under a key derived from the master key.
// Output layout: version(1) || nonce(24) || ciphertext || tag(16).
type Vault struct {
	aead cipher.AEAD
}

// New parses a base64 master key (standard or URL alphabet, padded or not) of at least 32 bytes.
func New(masterKey string) (*Vault, error) {
	masterKey = strings.TrimSpace(masterKey)
	if masterKey == "" {
		return nil, ErrMasterKeyMissing
	}
	raw, err := decodeKey(masterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMasterKeyMalformed, err)
	}
	if len(raw) < minMasterKey {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMasterKeyMalformed, minMasterKey, len(raw))
	}
	return NewFromBytes(raw)
}

func NewFromBytes(raw []byte) (*Vault, error) {
	if len(raw) < minMasterKey {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMasterKeyMalformed, minMasterKey, len(raw))
	}
	hk := hkdf.New(sha256.New, raw, hkdfSalt, hkdfInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not valid base64")
}

func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	ns := v.aead.NonceSize()
	out := make([]byte, 1+ns, 1+ns+len(plaintext)+v.aead.Overhead())
	out[0] = formatV1
	if _, err := rand.Read(out[1 : 1+ns]); err != nil {
		return nil, err
	}
	return v.aead.Seal(out, out[1:1+ns], plaintext, out[:1]), nil
}

// Decrypt fails closed: any length, version or tag problem is a *model.DecryptError.
func (v *Vault) Decrypt(in []byte) ([]byte, error) {
	ns := v.aead.NonceSize()
	minLen := 1 + ns + v.aead.Overhead()
	if len(in) < minLen {
		return nil, &model.DecryptError{Reason: fmt.Sprintf("ciphertext too short: got %d bytes, need at least %d", len(in), minLen)}
	}
	if in[0] != formatV1 {
		return nil, &model.DecryptError{Reason: fmt.Sprintf("unknown format version %d", in[0])}
	}
	nonce, sealed := in[1:1+ns], in[1+ns:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, in[:1])
	if err != nil {
		return nil, &model.DecryptError{Reason: "authentication failed", Err: err}
	}
	return plaintext, nil
}
