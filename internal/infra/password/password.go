package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// TestParams are cheap settings for tests and fixtures; never use in production.
var TestParams = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes new passwords with argon2id and a server-side pepper. It
// also verifies bcrypt hashes carried over from older deployments, which
// were stored without the pepper.
type Hasher struct {
	pepper string
	params *argon2id.Params
	dummy  string
}

func NewHasher(pepper string, params *argon2id.Params) (*Hasher, error) {
	if params == nil {
		params = DefaultParams
	}
	h := &Hasher{pepper: pepper, params: params}

	dummy, err := h.Hash("dummy-password-for-unknown-users")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy

	return h, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain+h.pepper, h.params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (h *Hasher) Verify(plain, hash string) (bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("verify bcrypt hash: %w", err)
		}
	}

	ok, err := argon2id.ComparePasswordAndHash(plain+h.pepper, hash)
	if err != nil {
		return false, fmt.Errorf("verify argon2id hash: %w", err)
	}
	return ok, nil
}

// VerifyUnknown spends the same work as Verify against a throwaway hash, so
// an unknown email costs as much as a wrong password. Always false.
func (h *Hasher) VerifyUnknown(plain string) {
	_, _ = argon2id.ComparePasswordAndHash(plain+h.pepper, h.dummy)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
