// Package cryptox holds the vault cryptography: bcrypt login hashes, Argon2id
// key derivation into locked memory, and AES-GCM sealed blobs.
package cryptox

import (
	"fmt"
	"math"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length of a derived vault key (AES-256).
	KeySize = 32

	// DefaultSaltLength is the per-user KDF salt length in bytes.
	DefaultSaltLength = 16

	// 19 MiB, two passes, one lane: roughly 200-300 ms per derivation on a
	// desktop CPU, which is the floor for interactive unlock.
	DefaultKDFMemoryKiB   = 19 * 1024
	DefaultKDFTimeCost    = 2
	DefaultKDFParallelism = 1
)

// DefaultKDFParams returns the Argon2id parameters stamped on new users.
func DefaultKDFParams() models.KDFParams {
	return models.KDFParams{
		MemoryKiB:   DefaultKDFMemoryKiB,
		TimeCost:    DefaultKDFTimeCost,
		Parallelism: DefaultKDFParallelism,
	}
}

// ValidateKDFParams reports ErrorInvalidInput if any cost parameter is
// non-positive or does not fit the argon2 argument types.
func ValidateKDFParams(p models.KDFParams) error {
	if p.MemoryKiB <= 0 || uint64(p.MemoryKiB) > math.MaxUint32 {
		return fmt.Errorf("%w: kdf memory must be positive", common.ErrorInvalidInput)
	}
	if p.TimeCost <= 0 || uint64(p.TimeCost) > math.MaxUint32 {
		return fmt.Errorf("%w: kdf time cost must be positive", common.ErrorInvalidInput)
	}
	if p.Parallelism <= 0 || p.Parallelism > math.MaxUint8 {
		return fmt.Errorf("%w: kdf parallelism must be in 1..255", common.ErrorInvalidInput)
	}
	return nil
}

// GenerateSalt returns length random bytes. A non-positive length falls back
// to DefaultSaltLength.
func GenerateSalt(length int) ([]byte, error) {
	if length <= 0 {
		length = DefaultSaltLength
	}
	salt, err := common.GenerateRandByteArray(length)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// VaultKey holds a derived 256-bit key in a memguard locked buffer. The key
// must be released with Destroy as soon as the operation using it is done.
type VaultKey struct {
	buf *memguard.LockedBuffer
}

// NewVaultKey moves raw into a locked buffer. raw is wiped in the process,
// even when its length is wrong.
func NewVaultKey(raw []byte) (*VaultKey, error) {
	if len(raw) != KeySize {
		common.WipeByteArray(raw)
		return nil, fmt.Errorf("%w: vault key must be %d bytes", common.ErrorInvalidInput, KeySize)
	}
	return &VaultKey{buf: memguard.NewBufferFromBytes(raw)}, nil
}

// Bytes exposes the key material. The slice is only valid until Destroy and
// must not be retained.
func (k *VaultKey) Bytes() []byte {
	if k == nil || k.buf == nil || !k.buf.IsAlive() {
		return nil
	}
	return k.buf.Bytes()
}

// Destroy wipes the key. Calling it more than once is safe.
func (k *VaultKey) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}

// DeriveKey derives a vault key from the master password with Argon2id.
// The same password, salt and params always give the same key.
//
// The call is CPU and memory heavy and cannot be cancelled; callers
// must not hold locks while it runs.
func DeriveKey(masterPassword string, salt []byte, p models.KDFParams) (*VaultKey, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("%w: master password is empty", common.ErrorInvalidInput)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: salt is empty", common.ErrorInvalidInput)
	}
	if err := ValidateKDFParams(p); err != nil {
		return nil, err
	}

	password := []byte(masterPassword)
	defer common.WipeByteArray(password)

	raw := argon2.IDKey(password, salt, uint32(p.TimeCost), uint32(p.MemoryKiB), uint8(p.Parallelism), KeySize)
	return NewVaultKey(raw)
}

// WithKey derives a key, hands it to fn and destroys it afterwards on every
// exit path, panics included.
//
//	err := cryptox.WithKey(master, user.KDFSalt, user.KDFParams, func(key *cryptox.VaultKey) error {
//	    blob, err = cryptox.EncryptSecret(secret, key, []byte(title))
//	    return err
//	})
func WithKey(masterPassword string, salt []byte, p models.KDFParams, fn func(key *VaultKey) error) error {
	key, err := DeriveKey(masterPassword, salt, p)
	if err != nil {
		return err
	}
	defer key.Destroy()

	return fn(key)
}
