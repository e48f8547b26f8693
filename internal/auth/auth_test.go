package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "user-1",
		"iss":    "predicacion",
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeUnlockReports},
	}
}

func TestParse(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "predicacion"}

	t.Run("valid token", func(t *testing.T) {
		claims, err := Parse(signToken(t, validClaims(), testSecret), cfg)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Errorf("subject = %q", claims.Subject)
		}
		if !claims.HasScope(ScopeUnlockReports) {
			t.Error("unlock scope lost")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := Parse("", cfg); !errors.Is(err, ErrMissingToken) {
			t.Errorf("err = %v, want ErrMissingToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := Parse(signToken(t, validClaims(), "other"), cfg); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := validClaims()
		c["iss"] = "someone-else"
		if _, err := Parse(signToken(t, c, testSecret), cfg); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		c := validClaims()
		delete(c, "sub")
		if _, err := Parse(signToken(t, c, testSecret), cfg); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c["exp"] = time.Now().Add(-time.Minute).Unix()
		if _, err := Parse(signToken(t, c, testSecret), cfg); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("space separated scopes", func(t *testing.T) {
		c := validClaims()
		c["scopes"] = "reports:unlock other"
		claims, err := Parse(signToken(t, c, testSecret), cfg)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !claims.HasScope("other") || !claims.HasScope(ScopeUnlockReports) {
			t.Errorf("scopes = %v", claims.Scopes)
		}
	})
}

func TestMiddleware(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "predicacion"}
	var gotUser string
	handler := NewMiddleware(cfg, nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r.Context())
	}))

	t.Run("no header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(), testSecret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotUser != "user-1" {
			t.Errorf("user = %q", gotUser)
		}
	})

	t.Run("skipper bypasses auth", func(t *testing.T) {
		skipAll := NewMiddleware(cfg, func(*http.Request) bool { return true }).
			Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		rec := httptest.NewRecorder()
		skipAll.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
