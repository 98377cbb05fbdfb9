package auth

import "errors"

var (
	ErrUnknownEmail         = errors.New("unknown email")
	ErrWrongPassword        = errors.New("wrong password")
	ErrInvalidOTP           = errors.New("invalid otp")
	ErrMalformedSession     = errors.New("malformed persisted session")
	ErrNoSession            = errors.New("no session")
	ErrNoPending            = errors.New("no pending identity")
	ErrNoPendingLogin       = errors.New("no login awaiting otp")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrUnknownRole          = errors.New("unknown role")
)
