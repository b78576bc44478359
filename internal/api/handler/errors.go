package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongladder/internal/api/apierr"
	"github.com/mcoot/pongladder/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// parsePlayerID parses a positive player id
func parsePlayerID(raw, name string) (model.PlayerID, error) {
	if raw == "" {
		return 0, NewInvalidRequestError(name + " is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewInvalidRequestError(name + " must be a positive integer")
	}
	return model.PlayerID(id), nil
}

// pathPlayerID reads the {id} route variable
func pathPlayerID(r *http.Request) (model.PlayerID, error) {
	return parsePlayerID(mux.Vars(r)["id"], "id")
}
