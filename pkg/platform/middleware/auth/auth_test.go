package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"nameguard/pkg/requestcontext"
	"nameguard/pkg/testutil"
)

type validatorFunc func(string) (*JWTClaims, error)

func (f validatorFunc) ValidateToken(token string) (*JWTClaims, error) { return f(token) }

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validatorFunc(func(token string) (*JWTClaims, error) {
		if token == "good" {
			return &JWTClaims{Caller: "onboarding-service", JTI: "jti-1"}, nil
		}
		return nil, errors.New("bad signature")
	})

	var caller string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireAuth(validator, logger)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller string
	}{
		{"valid token", "Bearer good", http.StatusNoContent, "onboarding-service"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer forged", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller = ""
			req := httptest.NewRequest(http.MethodPost, "/v1/names/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := testutil.DoRequest(handler, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCaller, caller)
			if tt.wantStatus == http.StatusUnauthorized {
				testutil.AssertErrorCode(t, rr, "unauthorized")
			}
		})
	}
}
