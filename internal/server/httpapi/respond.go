package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/services"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: msg, Kind: kind})
}

// classify maps service errors to a status code and a wire kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, protocol.KindValidation
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, protocol.KindUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, protocol.KindNotFound
	case errors.Is(err, common.ErrNameConflict):
		return http.StatusConflict, protocol.KindConflict
	case errors.Is(err, services.ErrVerificationFailed):
		return http.StatusUnprocessableEntity, protocol.KindVerification
	case errors.Is(err, services.ErrFinalizeFailed):
		return http.StatusBadGateway, protocol.KindFinalize
	case errors.Is(err, services.ErrStore):
		return http.StatusBadGateway, protocol.KindInternal
	default:
		return http.StatusInternalServerError, protocol.KindInternal
	}
}

// fail writes err as an ErrorResponse. Messages of unclassified errors stay
// in the log.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = common.ErrorInternal.Error()
	} else if status >= http.StatusInternalServerError {
		s.logger.Warn(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg, kind)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", common.ErrorValidation, err)
	}
	return nil
}
