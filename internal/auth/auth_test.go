package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	Secret:     "unit-test-secret",
	Issuer:     "feedboard.test",
	SessionTTL: time.Hour,
}

func TestSessionRoundTrip(t *testing.T) {
	token, expiresAt, err := IssueSession(testConfig, SessionInput{
		UserID:    "user-1",
		Admin:     true,
		Anonymous: false,
	})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.Admin)
	require.False(t, claims.Anonymous)
	require.True(t, claims.HasScope(ScopeFeedPost))
	require.True(t, claims.HasScope(ScopeFeedRead))
}

func TestNonAdminSessionLacksReadScope(t *testing.T) {
	token, _, err := IssueSession(testConfig, SessionInput{
		UserID:    "user-2",
		Anonymous: true,
	})
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.Anonymous)
	require.False(t, claims.Admin)
	require.True(t, claims.HasScope(ScopeFeedPost))
	require.False(t, claims.HasScope(ScopeFeedRead))
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	other := testConfig
	other.Issuer = "someone-else"
	token, _, err := IssueSession(other, SessionInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	short := testConfig
	short.SessionTTL = -time.Minute
	token, _, err := IssueSession(short, SessionInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := IssueAccessToken(testConfig, "vip-user", time.Hour)
	require.NoError(t, err)

	subject, err := ParseAccessToken(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "vip-user", subject)
}

func TestAccessTokenIsNotASessionToken(t *testing.T) {
	token, err := IssueAccessToken(testConfig, "vip-user", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	m := NewMiddleware(testConfig, nil)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareSkipsPublicPaths(t *testing.T) {
	m := NewMiddleware(testConfig, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	reached := false
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, reached)
}

func TestMiddlewareAcceptsTokenQueryParameter(t *testing.T) {
	token, _, err := IssueSession(testConfig, SessionInput{UserID: "user-3", Admin: true})
	require.NoError(t, err)

	m := NewMiddleware(testConfig, nil)
	var got *Claims
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/stream?token="+token, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	require.Equal(t, "user-3", got.Subject)
}

func TestMiddlewarePropagatesClaims(t *testing.T) {
	token, _, err := IssueSession(testConfig, SessionInput{UserID: "user-9", Admin: true})
	require.NoError(t, err)

	m := NewMiddleware(testConfig, nil)
	var got *Claims
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	require.Equal(t, "user-9", got.Subject)
	require.True(t, got.Admin)
}
