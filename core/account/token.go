package account

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

var NowFunc = time.Now // mockable

// resetTokenBytes is the entropy of a password reset token before encoding.
const resetTokenBytes = 32

// MakeResetToken returns a new cryptographically random, URL-safe reset token.
// The token is only usable while persisted on an account with a live expiry.
func MakeResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
