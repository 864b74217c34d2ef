package auth

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a username/password pair. The static
// implementation below stands in for a real identity provider; swapping
// it out is the intended extension point.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// StaticCredentials verifies against a single configured pair. When
// PasswordBcrypt is set it takes precedence and the plaintext Password
// is ignored.
type StaticCredentials struct {
	Username       string
	Password       string
	PasswordBcrypt string
}

func (c StaticCredentials) Verify(username, password string) bool {
	userOK := constantTimeEqual(c.Username, username)

	var passOK bool
	if c.PasswordBcrypt != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordBcrypt), []byte(password)) == nil
	} else {
		passOK = constantTimeEqual(c.Password, password)
	}

	// Evaluate both before combining so a mismatch does not reveal
	// which field was wrong through timing.
	return userOK && passOK
}

func constantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
