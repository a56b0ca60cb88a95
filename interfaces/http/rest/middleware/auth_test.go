package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowboard/interfaces/http/rest/middleware"
	"flowboard/pkg/auth"
	pkgerrors "flowboard/pkg/errors"
)

var testJWTConfig = auth.JWTConfig{
	Secret:   "test-secret",
	Issuer:   "flowboard-test",
	Audience: "flowboard-api",
	TTL:      time.Hour,
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.NewJWTGenerator(testJWTConfig).Generate(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

func authedRequest(token, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", ip)
	return req
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) pkgerrors.ErrorResponse {
	t.Helper()
	var resp pkgerrors.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAuthenticateRateLimits(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	validator := auth.NewJWTValidator(testJWTConfig)

	t.Run("exhausted ip limit is a retryable 429", func(t *testing.T) {
		handler := middleware.Authenticate(
			validator,
			auth.NewIPRateLimiter(1),
			auth.NewUserRateLimiter(100),
			zap.NewNop(),
		)(next)
		token := signedToken(t, "user-1")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.0.1"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.0.1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		resp := decodeErrorBody(t, rec)
		assert.True(t, resp.Error)
		assert.Equal(t, string(pkgerrors.ErrorTypeRateLimit), resp.Type)
		assert.Equal(t, pkgerrors.ErrRateLimitExceeded.Code, resp.Code)
		assert.True(t, resp.Retryable)
		assert.Equal(t, "ip", resp.Details["scope"])
	})

	t.Run("other ips are unaffected by one ip's limit", func(t *testing.T) {
		handler := middleware.Authenticate(
			validator,
			auth.NewIPRateLimiter(1),
			auth.NewUserRateLimiter(100),
			zap.NewNop(),
		)(next)
		token := signedToken(t, "user-1")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.0.1"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.0.2"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("exhausted user limit is a retryable 429", func(t *testing.T) {
		handler := middleware.Authenticate(
			validator,
			auth.NewIPRateLimiter(100),
			auth.NewUserRateLimiter(1),
			zap.NewNop(),
		)(next)
		token := signedToken(t, "user-2")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.1.1"))
		require.Equal(t, http.StatusOK, rec.Code)

		// Different source address so only the per-user limit can fire
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token, "10.0.1.2"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		resp := decodeErrorBody(t, rec)
		assert.Equal(t, string(pkgerrors.ErrorTypeRateLimit), resp.Type)
		assert.Equal(t, pkgerrors.ErrRateLimitExceeded.Code, resp.Code)
		assert.True(t, resp.Retryable)
		assert.Equal(t, "user", resp.Details["scope"])
	})
}
