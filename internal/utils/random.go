package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomString returns a url-safe random string from the given number of
// random bytes. Used for opaque ids such as pending-login keys.
func RandomString(bytes int) string {
	b := make([]byte, bytes)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
