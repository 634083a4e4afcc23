package apiclient

import "errors"

var (
	ErrUnauthorized = errors.New("invalid credentials or expired token")
	ErrRateLimited  = errors.New("rate limited by server")
	ErrNotFound     = errors.New("resource not found")
)
