package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	table, err := auth.NewCredentialTable([]auth.Account{
		{ID: "1", Email: "admin@totalenergies.com", Name: "John Doe (Admin)", Role: auth.RoleAdministrator, Password: "admin123"},
		{ID: "2", Email: "user@totalenergies.com", Name: "Jane Smith (User)", Role: auth.RoleStandardUser, Password: "user123"},
	}, bcrypt.MinCost)
	require.NoError(t, err)

	return auth.NewService(auth.ServiceParams{
		Credentials: table,
		OTP:         auth.NewStaticOTP("123456"),
		Store:       auth.NewMemoryStore(),
	})
}

func signedInController(t *testing.T, svc *auth.Service, profile, email, password string) *auth.Controller {
	t.Helper()
	ctx := context.Background()
	c := svc.Controller(profile)
	_, err := c.Login(ctx, email, password)
	require.NoError(t, err)
	_, err = c.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	return c
}

type nextHandler struct {
	called     bool
	controller *auth.Controller
}

func (h *nextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.controller, _ = middleware.ControllerFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestGuard(t *testing.T) {
	svc := newTestAuthService(t)
	admin := signedInController(t, svc, "p-admin", "admin@totalenergies.com", "admin123")
	anonymous := svc.Controller("p-anon")

	testCases := []struct {
		name             string
		publicOnly       bool
		optional         bool
		controller       *auth.Controller
		restoreErr       error
		expectedStatus   int
		expectedLocation string
		expectNextCalled bool
	}{
		{
			name:             "ProtectedAuthenticated",
			controller:       admin,
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name:             "ProtectedAnonymous",
			controller:       anonymous,
			expectedStatus:   http.StatusFound,
			expectedLocation: "/login",
		},
		{
			name:           "ProtectedStoreUnavailable",
			restoreErr:     errors.New("redis down"),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:             "PublicOnlyAnonymous",
			publicOnly:       true,
			controller:       anonymous,
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name:             "PublicOnlyAuthenticated",
			publicOnly:       true,
			controller:       admin,
			expectedStatus:   http.StatusFound,
			expectedLocation: "/dashboard",
		},
		{
			name:           "PublicOnlyStoreUnavailable",
			publicOnly:     true,
			restoreErr:     errors.New("redis down"),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:             "OptionalAnonymous",
			optional:         true,
			controller:       anonymous,
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name:             "OptionalAuthenticated",
			optional:         true,
			controller:       admin,
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name:           "OptionalStoreUnavailable",
			optional:       true,
			restoreErr:     errors.New("redis down"),
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			restorer := NewMockSessionRestorer(ctrl)
			restorer.EXPECT().
				Restore(gomock.Any(), "profile-1").
				Return(tc.controller, tc.restoreErr).
				Times(1)

			guard := middleware.NewGuard(restorer)
			mw := guard.Protected()
			if tc.publicOnly {
				mw = guard.PublicOnly()
			}
			if tc.optional {
				mw = guard.Optional()
			}

			req := httptest.NewRequest(http.MethodGet, "/somewhere", nil)
			req = req.WithContext(middleware.WithProfile(req.Context(), "profile-1"))
			rr := httptest.NewRecorder()
			next := &nextHandler{}
			mw(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectNextCalled, next.called)
			if tc.expectedLocation != "" {
				assert.Equal(t, tc.expectedLocation, rr.Header().Get("Location"))
			}
			if tc.expectNextCalled {
				assert.Same(t, tc.controller, next.controller)
			}
			if tc.restoreErr != nil {
				assert.Equal(t, "1", rr.Header().Get("Retry-After"))
				assert.JSONEq(t, `{"state":"loading"}`, rr.Body.String())
			}
		})
	}
}

func TestGuard_MissingProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	restorer := NewMockSessionRestorer(ctrl)

	rr := httptest.NewRecorder()
	next := &nextHandler{}
	middleware.NewGuard(restorer).Protected()(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, next.called)
}

func TestRequirePermission(t *testing.T) {
	svc := newTestAuthService(t)
	admin := signedInController(t, svc, "p-admin", "admin@totalenergies.com", "admin123")
	user := signedInController(t, svc, "p-user", "user@totalenergies.com", "user123")

	testCases := []struct {
		name           string
		controller     *auth.Controller
		capability     auth.Capability
		expectedStatus int
	}{
		{"AdminManageSystem", admin, auth.CanManageSystem, http.StatusOK},
		{"UserManageSystem", user, auth.CanManageSystem, http.StatusForbidden},
		{"UserViewAnalytics", user, auth.CanViewAnalytics, http.StatusOK},
		{"NoController", nil, auth.CanViewAnalytics, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
			if tc.controller != nil {
				req = req.WithContext(middleware.WithController(req.Context(), tc.controller))
			}
			rr := httptest.NewRecorder()
			next := &nextHandler{}
			middleware.RequirePermission(tc.capability)(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedStatus == http.StatusOK, next.called)
		})
	}
}
