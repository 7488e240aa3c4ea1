package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filab/fi-dashboard/internal/config"
	"github.com/filab/fi-dashboard/internal/domain/chart"
	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/platform/auth"
)

const fixturePath = "../../data/fi_lab_all_patients.json"

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		DataSource:        config.SourceFile,
		DataPath:          fixturePath,
		AccessSecret:      "open-sesame",
		SessionSigningKey: "test-signing-key-that-is-long-enough",
		SessionTTL:        time.Hour,
		RateLimitRPS:      100,
		RateLimitBurst:    100,
		BodyLimit:         "64K",
		ChartFixedRange:   true,
		ChartDxTicks:      true,
		ChartHoverWindow:  true,
	}
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := testConfig()
	snap, pool, err := loadSnapshot(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	if pool != nil {
		t.Fatal("file source should not open a pool")
	}
	e, err := newServer(cfg, snap, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return e
}

func do(e *echo.Echo, method, path, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func unlock(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, auth.SessionPath, "", `{"password":"open-sesame"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp auth.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Token
}

func TestServer_PublicRoutes(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", `id="gate-form"`},
		{"/static/app.js", "plotly_hover"},
		{"/health", `"patients":3`},
		{"/health/db", "not_configured"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.path, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected %q in body", tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("expected request id header")
			}
		})
	}
}

func TestServer_LockedUntilUnlocked(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/patients", "/api/v1/patients/1000001/chart"} {
		if rec := do(e, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := do(e, http.MethodPost, auth.SessionPath, "", `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Incorrect password") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestServer_DashboardFlow(t *testing.T) {
	e := newTestServer(t)
	token := unlock(t, e)

	rec := do(e, http.MethodGet, "/api/v1/dashboard", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var dash struct {
		Patients []struct {
			HCN      string `json:"hcn"`
			Deceased bool   `json:"deceased"`
		} `json:"patients"`
		Selected string          `json:"selected"`
		Chart    json.RawMessage `json:"chart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dash.Patients) != 3 || dash.Selected != "1000001" {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
	if !dash.Patients[1].Deceased {
		t.Error("expected second fixture patient to be deceased")
	}
	if !bytes.Contains(dash.Chart, []byte("FI-Lab Timeline | HCN 1000001")) {
		t.Error("expected chart for the first patient")
	}

	rec = do(e, http.MethodGet, "/api/v1/dashboard?selected=1000002", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"selected":"1000002"`) {
		t.Errorf("expected selection to move, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/dashboard?selected=nobody", token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown patient, got %d", rec.Code)
	}
}

func TestServer_Downloads(t *testing.T) {
	e := newTestServer(t)
	token := unlock(t, e)

	rec := do(e, http.MethodGet, "/api/v1/patients/1000002/chart.png", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("png: expected 200, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}

	rec = do(e, http.MethodGet, "/api/v1/patients/1000003/export.xlsx", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "fi-lab-1000003.xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
}

func TestServer_SignOut(t *testing.T) {
	e := newTestServer(t)
	token := unlock(t, e)

	rec := do(e, http.MethodDelete, auth.SessionPath, token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"locked"`) {
		t.Fatalf("unexpected sign-out response %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnlockAttempt(t *testing.T) {
	e := echo.New()
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, auth.SessionPath, true},
		{http.MethodGet, auth.SessionPath, false},
		{http.MethodPost, "/api/v1/chart/hover", false},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(tt.method, "/", nil), httptest.NewRecorder())
		c.SetPath(tt.path)
		if got := unlockAttempt(c); got != tt.want {
			t.Errorf("%s %s: got %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestRenderTo(t *testing.T) {
	snap, _, err := loadSnapshot(context.Background(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	rec, err := snap.GetByHCN(context.Background(), "1000001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	opts := chart.DefaultOptions()

	tests := []struct {
		ext    string
		prefix string
	}{
		{".png", "\x89PNG"},
		{".PNG", "\x89PNG"},
		{".xlsx", "PK"},
		{".json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			var buf bytes.Buffer
			if err := renderTo(&buf, tt.ext, rec, opts); err != nil {
				t.Fatalf("render: %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.prefix) {
				t.Errorf("expected output to start with %q", tt.prefix)
			}
		})
	}

	if err := renderTo(&bytes.Buffer{}, ".svg", rec, opts); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestReportIssues(t *testing.T) {
	issues := []patient.Issue{{HCN: "9", Field: "fi_lab", Message: "series truncated"}}

	var buf bytes.Buffer
	if err := reportIssues(&buf, "file", 3, issues, false); err != nil {
		t.Fatalf("non-strict should not fail: %v", err)
	}
	if !strings.Contains(buf.String(), "9: fi_lab: series truncated") ||
		!strings.Contains(buf.String(), "file: 3 patients, 1 issues") {
		t.Errorf("unexpected report %q", buf.String())
	}

	if err := reportIssues(&bytes.Buffer{}, "file", 3, issues, true); err == nil {
		t.Error("expected strict mode to fail")
	}
	if err := reportIssues(&bytes.Buffer{}, "file", 3, nil, true); err != nil {
		t.Errorf("expected clean data to pass strict mode: %v", err)
	}
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.LogLevel = tt.in
		if got := newLogger(cfg).GetLevel(); got != tt.want {
			t.Errorf("LOG_LEVEL %q: got %s, want %s", tt.in, got, tt.want)
		}
	}
}
