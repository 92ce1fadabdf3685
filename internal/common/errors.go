package common

import "errors"

var (
	// ErrNoRefreshToken is returned by a refresh attempted without a stored
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
)
