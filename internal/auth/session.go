package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity is who the user claims to be after a successful credential check.
// It becomes a Session only after the OTP is confirmed.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type Session struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	Avatar      *string       `json:"avatar"`
	LastLogin   time.Time     `json:"lastLogin"`
	Permissions PermissionSet `json:"permissions"`
}

func NewSession(identity Identity, lastLogin time.Time) *Session {
	return &Session{
		ID:          identity.ID,
		Email:       identity.Email,
		Name:        identity.Name,
		Role:        identity.Role,
		LastLogin:   lastLogin.UTC(),
		Permissions: PermissionsFor(identity.Role),
	}
}

func (s *Session) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: empty", ErrMalformedSession)
	case s.ID == "":
		return fmt.Errorf("%w: missing id", ErrMalformedSession)
	case s.Email == "":
		return fmt.Errorf("%w: missing email", ErrMalformedSession)
	case !s.Role.Valid():
		return fmt.Errorf("%w: invalid role", ErrMalformedSession)
	}
	return nil
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Avatar != nil {
		avatar := *s.Avatar
		c.Avatar = &avatar
	}
	return &c
}

func EncodeSession(s *Session) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeSession parses a persisted session. The stored permissions are
// ignored and derived from the role again.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSession, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Permissions = PermissionsFor(s.Role)
	return &s, nil
}
