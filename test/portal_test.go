//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/clientportal/internal/middleware"
)

type browser struct {
	t      *testing.T
	client *http.Client
}

// newBrowser returns a client with its own cookie jar, i.e. its own
// browser profile. Redirects are not followed.
func newBrowser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t: t,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(ctx context.Context, method, path string, body any) (int, http.Header, []byte) {
	b.t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(b.t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(b.t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, resp.Header, respBytes
}

func (b *browser) profile() string {
	b.t.Helper()
	u, err := url.Parse(serverEndpoint)
	require.NoError(b.t, err)

	issuer, err := middleware.NewProfileIssuer(testProfileSecret, false)
	require.NoError(b.t, err)
	for _, cookie := range b.client.Jar.Cookies(u) {
		if cookie.Name == middleware.ProfileCookieName {
			profile, err := issuer.Parse(cookie.Value)
			require.NoError(b.t, err)
			return profile
		}
	}
	b.t.Fatal("no profile cookie")
	return ""
}

func (b *browser) signIn(ctx context.Context, email, password string) {
	b.t.Helper()
	status, _, _ := b.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password})
	require.Equal(b.t, http.StatusOK, status)
	status, _, _ = b.do(ctx, http.MethodPost, "/login/otp", map[string]string{"otp": "123456"})
	require.Equal(b.t, http.StatusOK, status)
}

func (s *IntegrationTestSuite) TestAdminJourney() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBrowser(t)

	status, header, _ := b.do(ctx, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", header.Get("Location"))

	status, _, _ = b.do(ctx, http.MethodPost, "/login", map[string]string{"email": "admin@totalenergies.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, status)

	profile := b.profile()
	sessionKey := "clientportal-session||" + profile

	pendingKey := "clientportal-pending||" + profile

	// awaiting otp, only the pending identity is in redis
	exists, err := s.redisClient.Exists(ctx, sessionKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
	pendingTTL, err := s.redisClient.TTL(ctx, pendingKey).Result()
	require.NoError(t, err)
	assert.Greater(t, pendingTTL, time.Duration(0))
	assert.LessOrEqual(t, pendingTTL, 10*time.Minute)

	status, _, body := b.do(ctx, http.MethodPost, "/login/otp", map[string]string{"otp": "000000"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "invalid_otp")

	status, _, _ = b.do(ctx, http.MethodPost, "/login/otp", map[string]string{"otp": "123456"})
	require.Equal(t, http.StatusOK, status)

	raw, err := s.redisClient.Get(ctx, sessionKey).Result()
	require.NoError(t, err)
	assert.Contains(t, raw, `"email":"admin@totalenergies.com"`)
	exists, err = s.redisClient.Exists(ctx, pendingKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
	ttl, err := s.redisClient.TTL(ctx, sessionKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	status, _, body = b.do(ctx, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"role":"admin"`)

	status, _, _ = b.do(ctx, http.MethodGet, "/analytics?period=90d&app=lpg", nil)
	assert.Equal(t, http.StatusOK, status)

	// the activity recorder writes asynchronously
	require.Eventually(t, func() bool {
		var count int
		err := s.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM portal.activity WHERE email = $1`,
			"admin@totalenergies.com",
		).Scan(&count)
		return err == nil && count >= 2
	}, 5*time.Second, 50*time.Millisecond)

	status, _, body = b.do(ctx, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"activitySource":"live"`)
	assert.Contains(t, string(body), "Signed in to the portal")

	status, _, _ = b.do(ctx, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, status)

	exists, err = s.redisClient.Exists(ctx, sessionKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	status, _, _ = b.do(ctx, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, status)
}

func (s *IntegrationTestSuite) TestSessionSurvivesNewBrowserTab() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBrowser(t)
	b.signIn(ctx, "user@totalenergies.com", "user123")

	// a second client sharing the cookie jar acts like a reload, it must be
	// admitted from the persisted session without a new login
	reloaded := &browser{t: t, client: &http.Client{
		Jar:     b.client.Jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
	status, _, body := reloaded.do(ctx, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"role":"user"`)
	assert.Contains(t, string(body), `"canManageSystem":false`)
	assert.Contains(t, string(body), `"canAccessAllApps":true`)

	status, _, _ = reloaded.do(ctx, http.MethodPut, "/settings/system", map[string]bool{"debugMode": true})
	assert.Equal(t, http.StatusForbidden, status)

	status, header, _ := reloaded.do(ctx, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/dashboard", header.Get("Location"))
}

func (s *IntegrationTestSuite) TestMalformedSessionIsTreatedAsAbsent() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBrowser(t)
	status, _, _ := b.do(ctx, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, status)

	profile := b.profile()
	require.NoError(t, s.redisClient.Set(ctx, "clientportal-session||"+profile, "{not json", time.Hour).Err())

	status, header, _ := b.do(ctx, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", header.Get("Location"))
}

func (s *IntegrationTestSuite) TestPWADismissal() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBrowser(t)
	status, _, body := b.do(ctx, http.MethodGet, "/pwa/prompt", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"show":true`)

	status, _, _ = b.do(ctx, http.MethodPost, "/pwa/dismiss", nil)
	require.Equal(t, http.StatusOK, status)

	key := "clientportal-pwa-dismissed||" + b.profile()
	ttl, err := s.redisClient.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 60)

	status, _, body = b.do(ctx, http.MethodGet, "/pwa/prompt", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"show":false`)
}
