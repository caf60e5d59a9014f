package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmorgan81/cartoonbot/internal/datauri"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/dmorgan81/cartoonbot/internal/image"
	"github.com/dmorgan81/cartoonbot/internal/log"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}

// statusFor maps validation failures to 4xx; anything else came from the
// model or storage and is reported as a bad gateway.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, handler.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, handler.ErrInvalidPhoto),
		errors.Is(err, handler.ErrNotImage),
		errors.Is(err, datauri.ErrEmpty),
		errors.Is(err, datauri.ErrNotBase64),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, handler.ErrSharingDisabled):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	status := statusFor(err)
	logger := log.FromContextOrDiscard(r.Context())
	if status < http.StatusInternalServerError {
		logger.Warn(prefix, "status", status, log.Err(err))
		sendError(w, status, prefix+": "+err.Error())
		return
	}

	logger.Error(prefix, "status", status, log.Err(err))
	sendError(w, status, prefix+": "+upstreamMessage(err))
}

// upstreamMessage keeps storage and model error details out of responses.
func upstreamMessage(err error) string {
	if errors.Is(err, image.ErrNoImage) {
		return image.ErrNoImage.Error()
	}
	return "the upstream service failed, please try again later"
}
