package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// LegacyHash is the unsalted SHA-256 hex digest used by the flat-file
// credential format. It is deterministic and kept only to verify imported
// records; new hashes are bcrypt.
func LegacyHash(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches stored, which is either a
// bcrypt hash or a legacy SHA-256 digest.
func CheckPassword(stored, password string) bool {
	if isLegacyHash(stored) {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(LegacyHash(password))) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func isLegacyHash(s string) bool {
	if len(s) != sha256.Size*2 || strings.HasPrefix(s, "$") {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
