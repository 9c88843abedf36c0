package service

import "errors"

// The error taxonomy the API maps onto status codes and close frames.
//
// ErrAuthorization deliberately covers both "canvas does not exist" and
// "canvas exists but you may not touch it": callers cannot probe for canvas
// existence. ErrInvalidToken is likewise identical for a token that is
// missing, disabled, expired, or claimed by someone else.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrInvalidToken   = errors.New("invalid invitation token")
	ErrConflict       = errors.New("conflicting resource")
)
