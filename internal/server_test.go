package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/config"
	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/internal/telemetry/metrics"
)

const testConfig = `
[development]
redis_disabled = true
password_hash_cost = 4
show_demo_credentials = true
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.Parse("dev", testConfig)
	require.NoError(t, err)

	server, err := NewServer(context.Background(), NewServerParams{
		Config:        cfg,
		VersionInfo:   "abc123",
		ProfileSecret: "server-test-secret-0123456789",
	})
	require.NoError(t, err)
	require.Nil(t, server.redisClient)
	require.Nil(t, server.sessionStore)

	server.recorder.Start()
	t.Cleanup(server.recorder.Stop)
	return server
}

type portalClient struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (c *portalClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "41.90.64.10:51234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == middleware.ProfileCookieName {
			c.cookie = cookie
		}
	}
	return rr
}

func TestServer_AdminJourney(t *testing.T) {
	server := newTestServer(t)
	router, err := server.routerSetup()
	require.NoError(t, err)
	client := &portalClient{t: t, handler: router}

	rr := client.do(http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"authenticated":false`)

	rr = client.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = client.do(http.MethodGet, "/login", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"demoOtpHint":"123456"`)
	assert.Contains(t, rr.Body.String(), "admin@totalenergies.com")

	rr = client.do(http.MethodPost, "/login", `{"email":"admin@totalenergies.com","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = client.do(http.MethodPost, "/login", `{"email":"Admin@TotalEnergies.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodPost, "/login/otp", `{"otp":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = client.do(http.MethodPost, "/login/otp", `{"otp":"123456"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"admin"`)
	assert.Contains(t, rr.Body.String(), `"canManageSystem":true`)

	rr = client.do(http.MethodGet, "/analytics?period=7d", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	// the recorder writes in the background
	require.Eventually(t, func() bool {
		entries, err := server.activityRepo.ListRecent(context.Background(), "admin@totalenergies.com", 0)
		return err == nil && len(entries) == 3
	}, 2*time.Second, 10*time.Millisecond)

	rr = client.do(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var dashboard struct {
		Variant        string `json:"variant"`
		ActivitySource string `json:"activitySource"`
		RecentActivity []struct {
			Action string `json:"action"`
		} `json:"recentActivity"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dashboard))
	assert.Equal(t, "admin", dashboard.Variant)
	assert.Equal(t, "live", dashboard.ActivitySource)
	require.Len(t, dashboard.RecentActivity, 3)
	assert.Equal(t, "Signed in to the portal", dashboard.RecentActivity[0].Action)

	rr = client.do(http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rr.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(server.metricsManager.CounterSignIns.WithLabelValues("admin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metricsManager.CounterLoginAttempts.WithLabelValues("wrong_password")))
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metricsManager.CounterOTPFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metricsManager.CounterSignOuts))
}

func TestServer_UserCannotManageSystem(t *testing.T) {
	server := newTestServer(t)
	router, err := server.routerSetup()
	require.NoError(t, err)
	client := &portalClient{t: t, handler: router}

	client.do(http.MethodPost, "/login", `{"email":"user@totalenergies.com","password":"user123"}`)
	rr := client.do(http.MethodPost, "/login/otp", `{"otp":"123456"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodGet, "/analytics", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodPut, "/settings/system", `{"maintenanceMode":true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = client.do(http.MethodGet, "/apps", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_PWAPromptAndMisc(t *testing.T) {
	server := newTestServer(t)
	router, err := server.routerSetup()
	require.NoError(t, err)
	client := &portalClient{t: t, handler: router}

	rr := client.do(http.MethodGet, "/pwa/prompt", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"show":true`)

	rr = client.do(http.MethodPost, "/pwa/dismiss", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = client.do(http.MethodGet, "/pwa/prompt", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"show":false`)

	rr = client.do(http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc123", rr.Body.String())

	rr = client.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_DemoCredentialsHidden(t *testing.T) {
	cfg, err := config.Parse("dev", "[development]\nredis_disabled = true\n")
	require.NoError(t, err)
	server := &Server{config: cfg}
	assert.Empty(t, server.demoCredentials())

	cfg.ShowDemoCredentials = true
	cfg.Accounts = append(cfg.Accounts, config.Credential{
		ID:           "3",
		Email:        "ops@totalenergies.com",
		Role:         "user",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuuvwxyz0123456789abcdefghijklmno",
	})
	demo := server.demoCredentials()
	require.Len(t, demo, 2)
	assert.Equal(t, "admin@totalenergies.com", demo[0].Email)
}

func TestNewAuthService_UnknownRole(t *testing.T) {
	cfg, err := config.Parse("dev", "[development]\n")
	require.NoError(t, err)
	cfg.Accounts[0].Role = "superuser"

	_, err = newAuthService(cfg, auth.NewMemoryStore(), nil, nil)
	require.ErrorIs(t, err, auth.ErrUnknownRole)
}

func TestAuthEventHandler_Metrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	handle := authEventHandler(metricsManager, nil)
	ctx := context.Background()

	handle(ctx, auth.Event{Type: auth.EventLoginFailed, Err: auth.ErrUnknownEmail})
	handle(ctx, auth.Event{Type: auth.EventLoginFailed, Err: auth.ErrWrongPassword})
	handle(ctx, auth.Event{Type: auth.EventOTPRequired})
	handle(ctx, auth.Event{Type: auth.EventSignedIn, Role: auth.RoleStandardUser})
	handle(ctx, auth.Event{Type: auth.EventMalformedSession})

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterLoginAttempts.WithLabelValues("unknown_email")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterLoginAttempts.WithLabelValues("wrong_password")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterLoginAttempts.WithLabelValues("otp_required")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterSignIns.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterMalformedSessions))
}

func TestServer_ConnStateMetrics(t *testing.T) {
	server := &Server{metricsManager: metrics.NewTestManager()}
	server.connStateMetrics(nil, http.StateNew)
	server.connStateMetrics(nil, http.StateNew)
	server.connStateMetrics(nil, http.StateClosed)
	server.connStateMetrics(nil, http.StateActive)
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metricsManager.GaugeRequests))
}
