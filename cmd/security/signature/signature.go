package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier validates HMAC-SHA256 webhook signatures under a shared secret.
type Verifier struct {
	secret []byte
}

// New constructs a Verifier. An empty secret yields an unconfigured verifier;
// Verify reports ErrSecretMissing until the process is restarted with a secret.
func New(secret string) *Verifier {
	if secret == "" {
		return &Verifier{}
	}
	return &Verifier{secret: []byte(secret)}
}

// Configured reports whether a shared secret is present.
// Used by the readiness check.
func (v *Verifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// DigestHex returns the hex HMAC-SHA256 digest of body under the secret.
// Callers must pass the exact bytes as received on the wire; decoding and
// re-encoding the body does not round-trip.
func (v *Verifier) DigestHex(body []byte) string {
	m := hmac.New(sha256.New, v.secret)
	_, _ = m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify reports whether provided is a valid signature for body.
//
// A mismatch returns (false, nil): it is an expected outcome for
// misbehaving senders, not a failure of this component. The only error
// is ErrSecretMissing when no secret is configured.
func (v *Verifier) Verify(body []byte, provided string) (bool, error) {
	if !v.Configured() {
		return false, ErrSecretMissing
	}

	want := v.DigestHex(body)
	got := strings.TrimSpace(provided)

	// hmac.Equal is constant-time; comparing hex digests (not raw MACs)
	// keeps the comparison length-independent of the secret.
	return hmac.Equal([]byte(want), []byte(got)), nil
}
