package signature

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing = errors.New("webhook secret missing")
)
