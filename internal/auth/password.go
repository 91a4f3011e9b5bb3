package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used in production (~250ms per hash).
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: password does not match")

// PasswordService provides bcrypt hashing and verification.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// It generates a random salt per hash and embeds it (and the cost) in the
// output, so the whole hash fits in the users.password column:
//
//	$2a$12$<22-char salt><31-char hash>
//
// It's a struct (not free functions) so that the cost can be injected
// in tests: cost 4 makes tests run in milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Tests in other packages use bcrypt.MinCost (4). Do NOT use in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns an error if the plaintext is longer than 72 bytes: bcrypt would
// silently ignore the rest, so we reject it explicitly.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// HashRandom returns the hash of a random password nobody knows. Accounts
// created through GitHub sign-in get one so the password column is never empty
// and password login for them always fails.
func (p *PasswordService) HashRandom() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating random password: %w", err)
	}
	return p.Hash(hex.EncodeToString(b))
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil on a match and ErrPasswordMismatch on a wrong password. A hash
// that isn't bcrypt at all (e.g. a legacy werkzeug "pbkdf2:sha256:..." value)
// is reported as a different, wrapped error.
//
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
