package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func sessionIDParam(r *http.Request) (valueobjects.SessionID, error) {
	id, err := valueobjects.NewSessionIDFromString(chi.URLParam(r, "sessionID"))
	if err != nil {
		return valueobjects.SessionID{}, pkgerrors.NewValidationError("invalid session id")
	}
	return id, nil
}

func nodeIDParam(r *http.Request, name string) (valueobjects.NodeID, error) {
	id, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, name))
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.NewValidationError("invalid node id")
	}
	return id, nil
}

func edgeIDParam(r *http.Request) (valueobjects.EdgeID, error) {
	id, err := valueobjects.NewEdgeIDFromString(chi.URLParam(r, "edgeID"))
	if err != nil {
		return valueobjects.EdgeID{}, pkgerrors.NewValidationError("invalid edge id")
	}
	return id, nil
}

func blitzIDParam(r *http.Request) (valueobjects.BlitzID, error) {
	id, err := valueobjects.NewBlitzIDFromString(chi.URLParam(r, "blitzID"))
	if err != nil {
		return valueobjects.BlitzID{}, pkgerrors.NewValidationError("invalid blitz id")
	}
	return id, nil
}
