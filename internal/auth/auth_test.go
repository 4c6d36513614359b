package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fdg312/dining-planner/internal/config"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		AuthMode:      mode,
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "dining-planner-test",
		JWTTTLMinutes: 60,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(testConfig(config.AuthModeJWT))

	token, err := svc.Issue("student-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	sub, err := svc.Verify(token)
	if err != nil || sub != "student-42" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}

	t.Run("expired", func(t *testing.T) {
		old := NewService(testConfig(config.AuthModeJWT))
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := old.Issue("student-42")
		if _, err := svc.Verify(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		cfg := testConfig(config.AuthModeJWT)
		cfg.JWTSecret = "another-secret"
		token, _ := NewService(cfg).Issue("student-42")
		if _, err := svc.Verify(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := testConfig(config.AuthModeJWT)
		cfg.JWTIssuer = "someone-else"
		token, _ := NewService(cfg).Issue("student-42")
		if _, err := svc.Verify(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x", Issuer: "dining-planner-test"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := svc.Verify(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestRequireAuth(t *testing.T) {
	svc := NewService(testConfig(config.AuthModeJWT))
	valid, _ := svc.Issue("student-42")

	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		mode   string
		path   string
		header string
		status int
		sub    string
	}{
		{"none mode passes", config.AuthModeNone, "/v1/menu", "", http.StatusNoContent, ""},
		{"missing token", config.AuthModeJWT, "/v1/menu", "", http.StatusUnauthorized, ""},
		{"malformed header", config.AuthModeJWT, "/v1/menu", "Token " + valid, http.StatusUnauthorized, ""},
		{"valid token", config.AuthModeJWT, "/v1/menu", "Bearer " + valid, http.StatusNoContent, "student-42"},
		{"dev mode requires token", config.AuthModeDev, "/v1/suggest", "", http.StatusUnauthorized, ""},
		{"healthz is public", config.AuthModeJWT, "/healthz", "", http.StatusNoContent, ""},
		{"auth routes are public", config.AuthModeDev, "/v1/auth/dev", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			mw := NewMiddleware(testConfig(tt.mode), svc)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			mw.RequireAuth(next).ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if gotSubject != tt.sub {
				t.Fatalf("subject = %q, want %q", gotSubject, tt.sub)
			}
			if tt.status == http.StatusUnauthorized && !strings.Contains(rr.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("unexpected body %s", rr.Body.String())
			}
		})
	}
}

func TestHandleDevAuth(t *testing.T) {
	svc := NewService(testConfig(config.AuthModeDev))
	rr := httptest.NewRecorder()
	NewHandlers(svc).HandleDevAuth(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/dev", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp DevAuthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 3600 || !strings.HasPrefix(resp.Subject, "dev-") {
		t.Fatalf("unexpected response %+v", resp)
	}
	sub, err := svc.Verify(resp.AccessToken)
	if err != nil || sub != resp.Subject {
		t.Fatalf("Verify = %q, %v", sub, err)
	}
}
