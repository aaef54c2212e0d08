package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/finance-advisor/internal/auth"
)

type fakeValidator struct {
	sessions map[string]*auth.Session
}

func (f fakeValidator) Validate(token string) (*auth.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return nil, errors.New("invalid token")
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f fakeRevocations) Revoke(context.Context, string, time.Time) error { return nil }

func (f fakeRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return f.revoked[id], f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes back the X-User-ID the handler sees.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, hasSession := SessionFrom(r.Context())
	if hasSession {
		w.Header().Set("X-Has-Session", "yes")
	}
	w.Write([]byte(UserID(r)))
})

func TestAuthenticate(t *testing.T) {
	validator := fakeValidator{sessions: map[string]*auth.Session{
		"good":    {Identity: auth.Identity{UserID: "u1"}, TokenID: "jti-good"},
		"revoked": {Identity: auth.Identity{UserID: "u2"}, TokenID: "jti-revoked"},
	}}
	revocations := fakeRevocations{revoked: map[string]bool{"jti-revoked": true}}
	h := Authenticate(validator, revocations, discardLogger())(echoUser)

	tests := []struct {
		name        string
		authz       string
		spoofedUser string
		wantUser    string
		wantSession bool
	}{
		{"valid token", "Bearer good", "", "u1", true},
		{"lowercase scheme", "bearer good", "", "u1", true},
		{"spoofed header is replaced", "Bearer good", "attacker", "u1", true},
		{"spoofed header without token", "", "attacker", "", false},
		{"invalid token", "Bearer nope", "", "", false},
		{"revoked token", "Bearer revoked", "", "", false},
		{"wrong scheme", "Basic good", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chat", nil)
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			if tt.spoofedUser != "" {
				req.Header.Set(UserIDHeader, tt.spoofedUser)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantUser, rec.Body.String())
			assert.Equal(t, tt.wantSession, rec.Header().Get("X-Has-Session") == "yes")
		})
	}
}

func TestAuthenticate_RevocationStoreDown(t *testing.T) {
	validator := fakeValidator{sessions: map[string]*auth.Session{
		"good": {Identity: auth.Identity{UserID: "u1"}, TokenID: "jti"},
	}}
	h := Authenticate(validator, fakeRevocations{err: errors.New("redis down")}, discardLogger())(echoUser)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Body.String())
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logging(logger))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	out := buf.String()
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"request_id"`)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	var seen string
	r.Get("/goals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			seen = routePattern(r)
		})
	}).Get("/chat", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/goals/abc123", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, "/chat", seen)
}
