package auth

import "errors"

var (
	InvalidCredentialsErr = errors.New("invalid email or password")
	InvalidGrantErr       = errors.New("invalid or expired login grant")
)
