package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost parameter used when hashing admin passwords.
const DefaultBcryptCost = 10

// MinPasswordLength is the minimum required password length.
const MinPasswordLength = 8

// MaxPasswordLength is the maximum allowed password length.
// bcrypt silently truncates at 72 bytes, so we enforce this limit.
const MaxPasswordLength = 72

// ErrPasswordTooShort is returned when a password is too short.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ErrPasswordTooLong is returned when a password is too long.
var ErrPasswordTooLong = errors.New("password must be at most 72 characters")

// Credential is the admin login the API checks login requests against.
// The hash is a bcrypt hash, normally written to the config file by
// "zkauthd init".
type Credential struct {
	Username     string
	PasswordHash string
}

// Configured reports whether a usable credential is present.
func (c Credential) Configured() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// Verify checks a username/password pair against the credential. Both the
// username comparison and the hash comparison run regardless of earlier
// mismatches so a failed login costs the same either way.
func (c Credential) Verify(username, password string) bool {
	if !c.Configured() {
		return false
	}
	usernameOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	return usernameOK && passwordOK
}

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// ValidatePassword checks if a password meets the length requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
