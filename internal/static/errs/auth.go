package errs

import "errors"

var (
	ErrSecretMissing = errors.New("JWT_SECRET is not set")
	ErrInvalidToken  = errors.New("invalid token")
)
