package httptransport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/synexstock/orderflow/internal/auth"
)

type stubVerifier struct {
	principal auth.Principal
	err       error
	seen      string
}

func (v *stubVerifier) Verify(token string) (auth.Principal, error) {
	v.seen = token
	return v.principal, v.err
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticatePublicPathsPassWithoutCredential(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("must not be called")}
	gate := Authenticate(verifier, http.HandlerFunc(okHandler))

	for _, path := range []string{"/api/auth/signup", "/api/auth/login", "/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if verifier.seen != "" {
		t.Error("verifier must not run for public paths")
	}
}

func TestAuthenticateEmailLookupIsNotPublic(t *testing.T) {
	gate := Authenticate(&stubVerifier{}, http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/email/alice", nil)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateRejectsMissingOrMalformedHeader(t *testing.T) {
	gate := Authenticate(&stubVerifier{}, http.HandlerFunc(okHandler))

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc123"},
		{"empty token", "Bearer "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	gate := Authenticate(&stubVerifier{err: errors.New("expired")}, http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateAttachesPrincipalAndCredential(t *testing.T) {
	verifier := &stubVerifier{
		principal: auth.Principal{Subject: "alice", Roles: []string{"ROLE_MANAGER"}},
	}

	var gotPrincipal auth.Principal
	var gotCredential string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = auth.PrincipalFrom(r.Context())
		gotCredential = auth.CredentialFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	Authenticate(verifier, inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotPrincipal.Subject != "alice" {
		t.Errorf("principal subject %q", gotPrincipal.Subject)
	}
	if gotCredential != "good-token" {
		t.Errorf("credential %q", gotCredential)
	}
	if verifier.seen != "good-token" {
		t.Errorf("verifier saw %q", verifier.seen)
	}
}

func TestRequireRoles(t *testing.T) {
	handler := requireRoles(okHandler, "ROLE_ADMIN", "ROLE_MANAGER")

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		ctx := auth.WithPrincipal(req.Context(), auth.Principal{Subject: "u", Roles: []string{"ROLE_USER"}})
		rec := httptest.NewRecorder()
		handler(rec, req.WithContext(ctx))
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		ctx := auth.WithPrincipal(req.Context(), auth.Principal{Subject: "u", Roles: []string{"ROLE_MANAGER"}})
		rec := httptest.NewRecorder()
		handler(rec, req.WithContext(ctx))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("no roles required means any principal", func(t *testing.T) {
		open := requireRoles(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/email/alice", nil)
		ctx := auth.WithPrincipal(req.Context(), auth.Principal{Subject: "u", Roles: []string{"ROLE_USER"}})
		rec := httptest.NewRecorder()
		open(rec, req.WithContext(ctx))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
