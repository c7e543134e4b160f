package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/blockpass/internal/common"
)

const (
	NonceSize = 12
	TagSize   = 16

	BlobVersion   = 1
	BlobAlgorithm = "A256GCM"
)

// Blob is the self-describing container stored as a vault item's
// ciphertext. Nonce, ciphertext and tag are separate fields; encoding/json
// writes them as base64 so the blob survives any text-based store.
type Blob struct {
	Version    int    `json:"v"`
	Algorithm  string `json:"alg"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Marshal encodes the blob to its canonical JSON form.
func (b *Blob) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// ParseBlob decodes and checks a serialized blob. Any structural problem is
// reported as ErrorAuthenticationFailure so callers cannot tell a corrupted
// blob from a wrong key.
func ParseBlob(data []byte) (*Blob, error) {
	b := &Blob{}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, common.ErrorAuthenticationFailure
	}
	if b.Version != BlobVersion || b.Algorithm != BlobAlgorithm ||
		len(b.Nonce) != NonceSize || len(b.Tag) != TagSize {
		return nil, common.ErrorAuthenticationFailure
	}
	return b, nil
}

func newGCM(key *VaultKey) (cipher.AEAD, error) {
	raw := key.Bytes()
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: aes-gcm requires a %d-byte key", common.ErrorInvalidInput, KeySize)
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// EncryptSecret encrypts plaintext with AES-256-GCM under key, binding aad
// (the item title for vault items) into the tag. Every call draws a fresh
// random nonce, so equal plaintexts never produce equal blobs.
func EncryptSecret(plaintext string, key *VaultKey, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := common.GenerateRandByteArray(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	pt := []byte(plaintext)
	defer common.WipeByteArray(pt)

	sealed := gcm.Seal(nil, nonce, pt, aad)
	split := len(sealed) - TagSize

	b := &Blob{
		Version:    BlobVersion,
		Algorithm:  BlobAlgorithm,
		Nonce:      nonce,
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
	}
	return b.Marshal()
}

// DecryptSecret opens a blob produced by EncryptSecret. A wrong key, wrong
// aad, tampered field or malformed container all return
// ErrorAuthenticationFailure and nothing else.
func DecryptSecret(data []byte, key *VaultKey, aad []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	b, err := ParseBlob(data)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(b.Ciphertext)+TagSize)
	sealed = append(sealed, b.Ciphertext...)
	sealed = append(sealed, b.Tag...)

	pt, err := gcm.Open(nil, b.Nonce, sealed, aad)
	if err != nil {
		return "", common.ErrorAuthenticationFailure
	}
	defer common.WipeByteArray(pt)

	return string(pt), nil
}
