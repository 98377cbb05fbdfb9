package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	ProfileCookieName = "portal_profile"
	profileTokenTTL   = 365 * 24 * time.Hour
	profileIssuer     = "clientportal"
)

var ErrInvalidProfileToken = errors.New("invalid profile token")

type ctxKey int

const (
	profileCtxKey ctxKey = iota
	controllerCtxKey
)

// ProfileIssuer signs and verifies the opaque browser profile token. The
// token carries nothing but a random profile id.
type ProfileIssuer struct {
	secret        []byte
	secureCookies bool
	// injectable clock (for unit testing)
	NowFunc func() time.Time
}

func NewProfileIssuer(secret string, secureCookies bool) (*ProfileIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("profile secret must have at least 16 characters")
	}
	return &ProfileIssuer{
		secret:        []byte(secret),
		secureCookies: secureCookies,
		NowFunc:       time.Now,
	}, nil
}

func (p *ProfileIssuer) Issue() (profile, token string, err error) {
	now := p.NowFunc()
	profile = uuid.NewString()
	claims := jwt.RegisteredClaims{
		Issuer:    profileIssuer,
		Subject:   profile,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(profileTokenTTL)),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign profile token: %w", err)
	}
	return profile, token, nil
}

// Parse returns the profile id of a valid token.
func (p *ProfileIssuer) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(profileIssuer),
		jwt.WithTimeFunc(p.NowFunc),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidProfileToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidProfileToken)
	}
	return claims.Subject, nil
}

func (p *ProfileIssuer) cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     ProfileCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(profileTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Profile makes sure every request belongs to a browser profile, issuing a
// new profile cookie when it is missing or cannot be verified.
func Profile(issuer *ProfileIssuer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var profile string
			if c, err := r.Cookie(ProfileCookieName); err == nil {
				if profile, err = issuer.Parse(c.Value); err != nil {
					log.Debugf("profile cookie rejected [%s]: %s", r.URL.Path, err)
				}
			}

			if profile == "" {
				newProfile, token, err := issuer.Issue()
				if err != nil {
					log.Errorf("issue profile token: %s", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				profile = newProfile
				http.SetCookie(w, issuer.cookie(token))
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}

func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileCtxKey, profile)
}

func ProfileFromContext(ctx context.Context) (string, bool) {
	profile, ok := ctx.Value(profileCtxKey).(string)
	return profile, ok && profile != ""
}
