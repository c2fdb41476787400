package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustIssue(t *testing.T, v *Verifier, caller string) string {
	t.Helper()
	tok, err := v.Issue(caller)
	if err != nil {
		t.Fatalf("Issue(%q): %v", caller, err)
	}
	return tok
}

func TestVerify(t *testing.T) {
	v := NewVerifier("s3cret", time.Hour)
	good := mustIssue(t, v, "alice")
	forged := mustIssue(t, NewVerifier("other", time.Hour), "alice")
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name   string
		caller string
		token  string
		want   error
	}{
		{"valid", "alice", good, nil},
		{"token for other caller", "bob", good, ErrInvalidToken},
		{"wrong secret", "alice", forged, ErrInvalidToken},
		{"alg none", "alice", none, ErrInvalidToken},
		{"without exp", "alice", noExp, ErrInvalidToken},
		{"empty caller", "", good, ErrMissingCredentials},
		{"empty token", "alice", "", ErrMissingCredentials},
		{"garbage", "alice", "deadbeef", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Verify(tt.caller, tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Verify = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyExpiry(t *testing.T) {
	now := epoch
	v := NewVerifier("s3cret", time.Hour, WithClock(func() time.Time { return now }))
	tok := mustIssue(t, v, "alice")

	now = epoch.Add(59 * time.Minute)
	if err := v.Verify("alice", tok); err != nil {
		t.Fatalf("Verify before exp: %v", err)
	}

	now = epoch.Add(time.Hour + time.Second)
	if err := v.Verify("alice", tok); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify after exp = %v, want %v", err, ErrTokenExpired)
	}
}

func TestIssueClaims(t *testing.T) {
	v := NewVerifier("s3cret", 2*time.Hour, WithClock(func() time.Time { return epoch }))
	tok := mustIssue(t, v, "alice")

	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &c); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if c.Subject != "alice" {
		t.Errorf("sub = %q, want alice", c.Subject)
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.Time.Equal(epoch.Add(2*time.Hour)) {
		t.Errorf("exp = %v, want %v", c.ExpiresAt, epoch.Add(2*time.Hour))
	}

	if _, err := v.Issue(""); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Issue(\"\") = %v, want %v", err, ErrMissingCredentials)
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("s3cret", time.Hour)
	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/markets/m1/claim", nil)
	req.Header.Set(HeaderCallerID, "alice")
	req.Header.Set("Authorization", "Bearer "+mustIssue(t, v, "alice"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen != "alice" {
		t.Errorf("caller = %q, want alice", seen)
	}

	// header forjado com token de outro usuário
	req = httptest.NewRequest(http.MethodPost, "/markets/m1/claim", nil)
	req.Header.Set(HeaderCallerID, "mallory")
	req.Header.Set("Authorization", "Bearer "+mustIssue(t, v, "alice"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", body["code"])
	}
}

func TestServiceKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"disabled", "", "", "", http.StatusOK},
		{"bearer ok", "k1", "Authorization", "Bearer k1", http.StatusOK},
		{"api key ok", "k1", HeaderAPIKey, "k1", http.StatusOK},
		{"missing", "k1", "", "", http.StatusUnauthorized},
		{"wrong", "k1", "Authorization", "Bearer k2", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/wallet/transfer", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			ServiceKey(tt.key)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
