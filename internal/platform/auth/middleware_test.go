package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	s, err := NewSessions(SessionConfig{SigningKey: testSigningKey, TTL: time.Hour})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	return s
}

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestRequireSession_MissingHeader(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/patients")

	err := RequireSession(newTestSessions(t), AuthSkipper)(okHandler)(c)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRequireSession_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())

			err := RequireSession(newTestSessions(t), nil)(okHandler)(c)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestRequireSession_ValidToken(t *testing.T) {
	sessions := newTestSessions(t)
	token, _, err := sessions.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var sessionID string
	h := RequireSession(sessions, nil)(func(c echo.Context) error {
		sessionID = SessionIDFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if sessionID == "" {
		t.Error("expected session id on request context")
	}
}

func TestRequireSession_RejectsBadTokens(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    SessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"expired", createTestToken(t, Claims{RegisteredClaims: expired, State: Unlocked}, testSigningKey)},
		{"wrong key", createTestToken(t, Claims{RegisteredClaims: valid, State: Unlocked}, []byte("other-key"))},
		{"wrong issuer", createTestToken(t, Claims{RegisteredClaims: wrongIssuer, State: Unlocked}, testSigningKey)},
		{"locked state", createTestToken(t, Claims{RegisteredClaims: valid, State: Locked}, testSigningKey)},
		{"no expiry", createTestToken(t, Claims{RegisteredClaims: noExpiry, State: Unlocked}, testSigningKey)},
		{"garbage", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			c := e.NewContext(req, httptest.NewRecorder())

			err := RequireSession(newTestSessions(t), nil)(okHandler)(c)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestRequireSession_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	c.SetPath("/health")

	if err := RequireSession(newTestSessions(t), AuthSkipper)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestNewSessions_RandomKeyWhenUnset(t *testing.T) {
	a, err := NewSessions(SessionConfig{})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	b, _ := NewSessions(SessionConfig{})

	token, _, err := a.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := a.Parse(token); err != nil {
		t.Errorf("expected own token to verify: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Error("expected token from another process key to fail")
	}
}

func TestSessions_TTL(t *testing.T) {
	s := newTestSessions(t)
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	token, exp, err := s.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(fixed.Add(time.Hour)) {
		t.Errorf("unexpected expiry %s", exp)
	}

	s.now = func() time.Time { return fixed.Add(2 * time.Hour) }
	if _, err := s.Parse(token); err == nil {
		t.Error("expected expired token to fail")
	}
}
