package middleware

import (
	"context"
	"net/http"

	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/telemetry/tracing"
	"github.com/2beens/clientportal/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

//go:generate mockgen -source=$GOFILE -destination=guard_mocks_test.go -package=middleware_test

type SessionRestorer interface {
	Restore(ctx context.Context, profile string) (*auth.Controller, error)
}

// Guard decides, per request, whether the guarded handler is rendered or the
// browser is redirected, based on the profile's rehydrated session.
type Guard struct {
	restorer SessionRestorer
}

func NewGuard(restorer SessionRestorer) *Guard {
	return &Guard{
		restorer: restorer,
	}
}

// Protected admits only authenticated profiles, everyone else goes to the login page.
func (g *Guard) Protected() func(next http.Handler) http.Handler {
	return g.guard("protected", func(c *auth.Controller) (string, bool) {
		if c.IsAuthenticated() {
			return "", true
		}
		return LoginPath, false
	})
}

// PublicOnly admits only profiles without a session, authenticated ones go to the dashboard.
func (g *Guard) PublicOnly() func(next http.Handler) http.Handler {
	return g.guard("public-only", func(c *auth.Controller) (string, bool) {
		if !c.IsAuthenticated() {
			return "", true
		}
		return LandingPath, false
	})
}

// Optional admits everyone, the rehydrated controller is still attached to
// the request, for pages that only adapt to the session.
func (g *Guard) Optional() func(next http.Handler) http.Handler {
	return g.guard("optional", func(*auth.Controller) (string, bool) {
		return "", true
	})
}

func (g *Guard) guard(
	variant string,
	admit func(c *auth.Controller) (redirectTo string, ok bool),
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.guard")
			defer span.End()
			span.SetAttributes(attribute.String("guard.variant", variant))

			profile, ok := ProfileFromContext(ctx)
			if !ok {
				log.Errorf("[guard %s] no profile for request => %s", variant, r.URL.Path)
				span.SetStatus(codes.Error, "missing-profile")
				http.Error(w, "missing profile", http.StatusInternalServerError)
				return
			}

			controller, err := g.restorer.Restore(ctx, profile)
			if err != nil {
				log.Errorf("[guard %s] rehydrate session of profile [%s]: %s", variant, profile, err)
				span.SetStatus(codes.Error, "rehydrate-failed")
				span.RecordError(err)
				WriteLoading(w)
				return
			}

			if redirectTo, ok := admit(controller); !ok {
				log.Tracef("[guard %s] %s => %s", variant, r.URL.Path, redirectTo)
				span.SetStatus(codes.Ok, "redirect")
				http.Redirect(w, r, redirectTo, http.StatusFound)
				return
			}

			span.SetStatus(codes.Ok, "admitted")
			next.ServeHTTP(w, r.WithContext(WithController(ctx, controller)))
		})
	}
}

// RequirePermission must be used behind Protected.
func RequirePermission(capability auth.Capability) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			controller, ok := ControllerFromContext(r.Context())
			if !ok || !controller.HasPermission(capability) {
				log.Tracef("[permission %s] forbidden => %s", capability, r.URL.Path)
				pkg.WriteJSON(w, http.StatusForbidden, map[string]any{
					"error": map[string]string{
						"code":    "forbidden",
						"message": "You do not have permission to view this page.",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteLoading renders the neutral state shown while the session cannot be resolved yet.
func WriteLoading(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	pkg.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"state": "loading"})
}

func WithController(ctx context.Context, c *auth.Controller) context.Context {
	return context.WithValue(ctx, controllerCtxKey, c)
}

func ControllerFromContext(ctx context.Context) (*auth.Controller, bool) {
	c, ok := ctx.Value(controllerCtxKey).(*auth.Controller)
	return c, ok && c != nil
}
