package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"valid token", "secret-token-123", "Bearer secret-token-123", http.StatusOK},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"basic auth", "secret", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"lowercase scheme", "secret", "bearer secret", http.StatusUnauthorized},
		{"no scheme", "secret", "secret", http.StatusUnauthorized},
		{"wrong token", "correct-token", "Bearer wrong-token", http.StatusUnauthorized},
		{"prefix of token", "correct-token", "Bearer correct", http.StatusUnauthorized},
		{"token with suffix", "correct-token", "Bearer correct-token-extra", http.StatusUnauthorized},
		{"empty presented token", "correct-token", "Bearer ", http.StatusUnauthorized},
		{"unconfigured rejects empty bearer", "", "Bearer ", http.StatusForbidden},
		{"unconfigured rejects anything", "", "Bearer anything", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := BearerToken(tt.configured)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			hasChallenge := rec.Header().Get("WWW-Authenticate") != ""
			if hasChallenge != (tt.wantStatus == http.StatusUnauthorized) {
				t.Errorf("WWW-Authenticate present = %v for status %d", hasChallenge, rec.Code)
			}
		})
	}
}

func TestBearerToken_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	h := BearerToken("tok")(inner)

	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("inner handler was not called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}
