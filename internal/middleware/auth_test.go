package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cleancity-backend/internal/services"
)

// fakeVerifier accepts exactly one token string.
type fakeVerifier struct {
	token    string
	identity *services.Identity
}

func (v *fakeVerifier) ValidateJWT(token string) (*services.Identity, error) {
	if token == v.token {
		return v.identity, nil
	}
	return nil, errors.New("invalid token")
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{
		token:    "good-token",
		identity: &services.Identity{UserID: "user-1", Email: "user@example.com"},
	}
}

func identityEcho() (http.Handler, *string) {
	var seen string
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}), &seen
}

func TestAuthRejectsWithoutValidToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"malformed", "Bearer"},
		{"invalid token", "Bearer bad-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, seen := identityEcho()
			handler := Auth(newFakeVerifier())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if *seen != "" {
				t.Error("handler ran despite rejection")
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			if body["error"] == "" || body["error"] == nil {
				t.Error("error message missing from body")
			}
		})
	}
}

func TestAuthAttachesIdentity(t *testing.T) {
	next, seen := identityEcho()
	handler := Auth(newFakeVerifier())(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if *seen != "user-1" {
		t.Errorf("user ID = %q, want user-1", *seen)
	}
}

func TestOptionalAuthDegradesToAnonymous(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantUser string
	}{
		{"no header", "", ""},
		{"invalid token", "Bearer bad-token", ""},
		{"valid token", "Bearer good-token", "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, seen := identityEcho()
			handler := OptionalAuth(newFakeVerifier())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if *seen != tt.wantUser {
				t.Errorf("user ID = %q, want %q", *seen, tt.wantUser)
			}
		})
	}
}

func TestGetIdentityOnBareContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetIdentity(req.Context()) != nil {
		t.Error("GetIdentity() on bare context should be nil")
	}
	if GetUserID(req.Context()) != "" {
		t.Error("GetUserID() on bare context should be empty")
	}
}
