package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowboard/application/services"
	"flowboard/infrastructure/persistence/memory"
	"flowboard/interfaces/http/rest/handlers"
	"flowboard/pkg/auth"
	pkgerrors "flowboard/pkg/errors"
)

func newSessionHandler(t *testing.T) *handlers.SessionHandler {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	svc := services.NewSessionService(store, nil, logger)
	// debug=false matches production error redaction
	return handlers.NewSessionHandler(svc, pkgerrors.NewErrorHandler(logger, false), logger)
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	ctx := auth.SetUserInContext(req.Context(), &auth.UserContext{UserID: "owner-1"})
	return req.WithContext(ctx)
}

func TestCreateSessionRejectsInvalidBody(t *testing.T) {
	t.Run("missing required field is a 400 naming the field", func(t *testing.T) {
		h := newSessionHandler(t)
		rec := httptest.NewRecorder()

		h.CreateSession(rec, postJSON(`{}`))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp pkgerrors.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Error)
		assert.Equal(t, string(pkgerrors.ErrorTypeValidation), resp.Type)
		assert.Contains(t, resp.Message, "name is required")
	})

	t.Run("over-limit field is a 400 naming the constraint", func(t *testing.T) {
		h := newSessionHandler(t)
		rec := httptest.NewRecorder()

		h.CreateSession(rec, postJSON(`{"name":"`+strings.Repeat("x", 201)+`"}`))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp pkgerrors.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(pkgerrors.ErrorTypeValidation), resp.Type)
		assert.Contains(t, resp.Message, "name must be at most 200")
	})

	t.Run("malformed JSON is a 400, not a 500", func(t *testing.T) {
		h := newSessionHandler(t)
		rec := httptest.NewRecorder()

		h.CreateSession(rec, postJSON(`{"name":`))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp pkgerrors.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(pkgerrors.ErrorTypeValidation), resp.Type)
	})

	t.Run("valid body still creates", func(t *testing.T) {
		h := newSessionHandler(t)
		rec := httptest.NewRecorder()

		h.CreateSession(rec, postJSON(`{"name":"Planning"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
	})
}
