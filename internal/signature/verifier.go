package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256="

// Verifier validates the processor's webhook signature header: an HMAC-SHA256
// over the raw request body, hex encoded and prefixed with "sha256=".
//
// A Verifier with no secret runs in insecure mode and accepts every event;
// callers decide whether that mode is permitted and must log the choice.
type Verifier struct {
	secret []byte
}

func New(secret string) Verifier {
	if secret == "" {
		return Verifier{}
	}
	return Verifier{secret: []byte(secret)}
}

// Insecure reports whether no shared secret is configured.
func (v Verifier) Insecure() bool { return v.secret == nil }

// Sign computes the signature header value for body. Used by tests and by
// the event publisher tool; returns "" in insecure mode.
func (v Verifier) Sign(body []byte) string {
	if v.Insecure() {
		return ""
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks claim against the HMAC of the exact body bytes as received.
// The body must not be reserialized before verification: whitespace or key
// order differences would break the hash. Malformed or missing claims are
// simply not verified, never an error.
func (v Verifier) Verify(body []byte, claim string) bool {
	if v.Insecure() {
		return true
	}
	if claim == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(claim))
}
