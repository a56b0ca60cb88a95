package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"flowboard/application/services"
	"flowboard/domain/core/entities"
	"flowboard/pkg/auth"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	sessions *services.SessionService
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions *services.SessionService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, errors: errors, logger: logger}
}

type createSessionRequest struct {
	Name     string                 `json:"name" validate:"required,max=200"`
	Settings map[string]interface{} `json:"settings"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("missing user context"))
		return
	}

	session, err := h.sessions.Create(r.Context(), user.UserID, req.Name, req.Settings)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toSessionResponse(session))
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toSessionResponse(session))
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("missing user context"))
		return
	}

	sessions, err := h.sessions.List(r.Context(), user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	page := common.ParsePageRequest(r)
	total := len(sessions)
	start, end := page.Slice(total)
	sessions = sessions[start:end]

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":   out,
		"pagination": page.Info(total),
	})
}

type updateSessionRequest struct {
	Name     *string                `json:"name" validate:"omitempty,max=200"`
	Status   *string                `json:"status" validate:"omitempty,oneof=active archived completed"`
	Settings map[string]interface{} `json:"settings"`
}

// UpdateSession handles PATCH /sessions/{sessionID}
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req updateSessionRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	input := services.SessionUpdateInput{
		Name:     req.Name,
		Settings: req.Settings,
	}
	if req.Status != nil {
		status := entities.SessionStatus(*req.Status)
		input.Status = &status
	}

	session, err := h.sessions.Update(r.Context(), sessionID, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toSessionResponse(session))
}

// DeleteSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"deleted": sessionID.String()})
}
