package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2beens/clientportal/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingOTP
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingOTP:
		return "awaiting_otp"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Controller drives the login -> OTP -> session -> logout flow of a single
// profile. It is the only writer of that profile's session; everything else
// reads through the query methods, which never fail.
type Controller struct {
	svc     *Service
	profile string

	mu      sync.RWMutex
	state   State
	pending *Identity
	session *Session
}

func (c *Controller) Profile() string {
	return c.profile
}

// Rehydrate restores the state from the session store. Absent or malformed
// sessions leave the controller unauthenticated; only an unavailable store
// is reported as error.
func (c *Controller) Rehydrate(ctx context.Context) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.rehydrate")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.svc.store.Load(ctx, c.profile)
	switch {
	case err == nil:
		c.session = session
		c.pending = nil
		c.state = StateAuthenticated
		span.SetAttributes(attribute.String("auth.role", session.Role.String()))
		span.SetStatus(codes.Ok, "authenticated")
		return nil
	case errors.Is(err, ErrMalformedSession):
		log.Warnf("dropping malformed session of profile [%s]: %s", c.profile, err)
		if delErr := c.svc.store.Delete(ctx, c.profile); delErr != nil {
			log.Errorf("delete malformed session of profile [%s]: %s", c.profile, delErr)
		}
		c.svc.emit(ctx, Event{Type: EventMalformedSession, Profile: c.profile, Err: err})
	case errors.Is(err, ErrNoSession):
	default:
		span.SetStatus(codes.Error, "load-session")
		span.RecordError(err)
		return fmt.Errorf("load session: %w", err)
	}

	c.session = nil
	c.state = StateUnauthenticated
	c.pending = nil

	pending, err := c.svc.pending.Get(ctx, c.profile)
	if err != nil {
		if !errors.Is(err, ErrNoPending) {
			log.Errorf("get pending identity of profile [%s]: %s", c.profile, err)
		}
		span.SetStatus(codes.Ok, "unauthenticated")
		return nil
	}

	c.pending = pending
	c.state = StateAwaitingOTP
	span.SetStatus(codes.Ok, "awaiting-otp")
	return nil
}

// Login checks the credentials. On success the controller awaits the OTP,
// nothing is persisted yet. On failure the state is left as it was.
func (c *Controller) Login(ctx context.Context, email, password string) (*Identity, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.login")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAuthenticated {
		span.SetStatus(codes.Error, "already-authenticated")
		return nil, ErrAlreadyAuthenticated
	}

	if err := c.svc.wait(ctx, c.svc.delays.Login); err != nil {
		return nil, err
	}

	identity, err := c.svc.credentials.Verify(ctx, email, password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.svc.emit(ctx, Event{Type: EventLoginFailed, Profile: c.profile, Email: email, Err: err})
		return nil, err
	}

	if err := c.svc.pending.Put(ctx, c.profile, *identity); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store pending identity: %w", err)
	}

	c.pending = identity
	c.state = StateAwaitingOTP
	span.SetStatus(codes.Ok, "awaiting-otp")
	c.svc.emit(ctx, Event{Type: EventOTPRequired, Profile: c.profile, Email: identity.Email, Role: identity.Role})

	pending := *identity
	return &pending, nil
}

// VerifyOTP confirms the pending login. A wrong code keeps the pending
// identity, so the user can retry without the password.
func (c *Controller) VerifyOTP(ctx context.Context, code string) (*Session, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.verifyOTP")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingOTP || c.pending == nil {
		span.SetStatus(codes.Error, "no-pending-login")
		return nil, ErrNoPendingLogin
	}

	if err := c.svc.wait(ctx, c.svc.delays.OTP); err != nil {
		return nil, err
	}

	if err := c.svc.otp.VerifyOTP(ctx, *c.pending, code); err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.svc.emit(ctx, Event{Type: EventOTPFailed, Profile: c.profile, Email: c.pending.Email, Role: c.pending.Role, Err: err})
		return nil, err
	}

	session := NewSession(*c.pending, c.svc.now())
	if err := c.svc.store.Save(ctx, c.profile, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save-session")
		return nil, fmt.Errorf("persist session: %w", err)
	}

	if err := c.svc.pending.Drop(ctx, c.profile); err != nil {
		log.Warnf("drop pending identity of profile [%s]: %s", c.profile, err)
	}

	c.session = session
	c.pending = nil
	c.state = StateAuthenticated
	span.SetAttributes(attribute.String("auth.role", session.Role.String()))
	span.SetStatus(codes.Ok, "authenticated")
	c.svc.emit(ctx, Event{Type: EventSignedIn, Profile: c.profile, Email: session.Email, Role: session.Role})

	return session.Clone(), nil
}

// BackToLogin discards the pending identity. It has no effect outside of
// the awaiting OTP state.
func (c *Controller) BackToLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingOTP {
		return nil
	}

	if err := c.svc.pending.Drop(ctx, c.profile); err != nil {
		return fmt.Errorf("drop pending identity: %w", err)
	}

	c.pending = nil
	c.state = StateUnauthenticated
	return nil
}

// SignOut removes the session from memory and from the store.
func (c *Controller) SignOut(ctx context.Context) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.signOut")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.svc.wait(ctx, c.svc.delays.Logout); err != nil {
		return err
	}

	if err := c.svc.store.Delete(ctx, c.profile); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete-session")
		return fmt.Errorf("delete session: %w", err)
	}
	if err := c.svc.pending.Drop(ctx, c.profile); err != nil {
		log.Warnf("drop pending identity of profile [%s]: %s", c.profile, err)
	}

	event := Event{Type: EventSignedOut, Profile: c.profile}
	if c.session != nil {
		event.Email = c.session.Email
		event.Role = c.session.Role
	}

	c.session = nil
	c.pending = nil
	c.state = StateUnauthenticated
	span.SetStatus(codes.Ok, "signed-out")
	c.svc.emit(ctx, event)
	return nil
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateAuthenticated && c.session != nil
}

// CurrentRole returns RoleNone and false without a session.
func (c *Controller) CurrentRole() (Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return RoleNone, false
	}
	return c.session.Role, true
}

func (c *Controller) HasPermission(capability Capability) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return false
	}
	return PermissionsFor(c.session.Role).Has(capability)
}

func (c *Controller) Permissions() PermissionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return PermissionSet{}
	}
	return PermissionsFor(c.session.Role)
}

// Session returns a copy of the current session, nil when there is none.
func (c *Controller) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Clone()
}

// Pending returns a copy of the identity awaiting OTP, nil when there is none.
func (c *Controller) Pending() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}
