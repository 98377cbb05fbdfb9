package auth

import (
	"context"
	"crypto/subtle"
)

const OTPLength = 6

type OTPVerifier interface {
	VerifyOTP(ctx context.Context, identity Identity, code string) error
}

// StaticOTP accepts one fixed code for every pending identity.
type StaticOTP struct {
	code string
}

var _ OTPVerifier = (*StaticOTP)(nil)

func NewStaticOTP(code string) *StaticOTP {
	return &StaticOTP{code: code}
}

func (o *StaticOTP) VerifyOTP(_ context.Context, _ Identity, code string) error {
	if !IsOTPFormat(code) {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(o.code)) != 1 {
		return ErrInvalidOTP
	}
	return nil
}

// IsOTPFormat reports whether code is exactly six ASCII digits.
func IsOTPFormat(code string) bool {
	if len(code) != OTPLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
