package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Password hash algorithms selectable from config.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// PasswordHasher produces and checks salted, adaptive password digests.
// The encoded hash carries everything Verify needs (salt and cost).
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. Malformed hashes are
	// a mismatch, never an error.
	Verify(password, hash string) bool
}

// NewPasswordHasher returns the hasher named by algorithm. cost applies to
// bcrypt only; zero selects bcrypt.DefaultCost.
func NewPasswordHasher(algorithm string, cost int) (PasswordHasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmBcrypt:
		return NewBcryptHasher(cost)
	case AlgorithmArgon2id:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown password hash algorithm %q", algorithm)
	}
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash rejects passwords over 72 bytes with common.ErrorValidation, since
// bcrypt would otherwise ignore the excess.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", common.ErrorValidation)
		}
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Argon2Hasher hashes with Argon2id and encodes the result in the PHC
// string format: $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		time:    1,
		memory:  64 * 1024,
		threads: 4,
		keyLen:  32,
		saltLen: 16,
	}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Upper bounds for parameters read back from a stored hash. Anything beyond
// them is treated as malformed rather than derived.
const (
	argon2MaxMemory  = 1 << 20 // KiB, i.e. 1 GiB
	argon2MaxTime    = 16
	argon2MaxThreads = 64
	argon2MaxKeyLen  = 64
)

func (h *Argon2Hasher) Verify(password, hash string) bool {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false
	}
	if memory > argon2MaxMemory || iterations > argon2MaxTime || threads > argon2MaxThreads {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > argon2MaxKeyLen {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}
