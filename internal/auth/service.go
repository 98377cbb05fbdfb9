package auth

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Delays simulate backend latency around the login flow.
type Delays struct {
	Login  time.Duration
	OTP    time.Duration
	Logout time.Duration
}

type EventType string

const (
	EventLoginFailed      EventType = "login_failed"
	EventOTPRequired      EventType = "otp_required"
	EventOTPFailed        EventType = "otp_failed"
	EventSignedIn         EventType = "signed_in"
	EventSignedOut        EventType = "signed_out"
	EventMalformedSession EventType = "malformed_session"
)

type Event struct {
	Type    EventType
	Profile string
	Email   string
	Role    Role
	Err     error
	At      time.Time
}

type ServiceParams struct {
	Credentials CredentialVerifier
	OTP         OTPVerifier
	Store       SessionStore
	Pending     PendingStore
	Delays      Delays
	// optional
	NowFunc func() time.Time
	OnEvent func(ctx context.Context, event Event)
}

// Service holds the collaborators shared by all controllers, one controller
// per browser profile.
type Service struct {
	credentials CredentialVerifier
	otp         OTPVerifier
	store       SessionStore
	pending     PendingStore
	delays      Delays
	now         func() time.Time
	onEvent     func(ctx context.Context, event Event)
}

func NewService(params ServiceParams) *Service {
	s := &Service{
		credentials: params.Credentials,
		otp:         params.OTP,
		store:       params.Store,
		pending:     params.Pending,
		delays:      params.Delays,
		now:         params.NowFunc,
		onEvent:     params.OnEvent,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pending == nil {
		s.pending = NewCachePendingStore(1, DefaultPendingTTL)
	}
	return s
}

// Controller returns a fresh, not yet rehydrated controller for the profile.
func (s *Service) Controller(profile string) *Controller {
	return &Controller{
		svc:     s,
		profile: profile,
		state:   StateUnauthenticated,
	}
}

// Restore returns the controller of the profile with its session rehydrated.
func (s *Service) Restore(ctx context.Context, profile string) (*Controller, error) {
	c := s.Controller(profile)
	if err := c.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) emit(ctx context.Context, event Event) {
	if s.onEvent == nil {
		return
	}
	event.At = s.now()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("auth event handler panic on %s: %v", event.Type, r)
		}
	}()
	s.onEvent(ctx, event)
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
