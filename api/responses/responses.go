package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError renders err as an ErrorEnvelope. Server-side failures log at
// error level with the full chain, client mistakes at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	public := pkgerrors.Publicize(err)
	if logg != nil {
		logged := logg.WithFields(ctx, pkgerrors.Diagnose(err).Fields())
		logged = logg.WithField(logged, "status", public.Status)
		if public.Status >= http.StatusInternalServerError {
			logg.Error(logged, "request.error", err)
		} else {
			logg.Warn(logg.WithField(logged, "error", errString(err)), "request.rejected")
		}
	}
	writeJSON(w, public.Status, ErrorEnvelope{Error: APIError{
		Code:    string(public.Code),
		Message: public.Message,
		Details: public.Details,
	}})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are gone by now, a failed encode can only be dropped
	_ = json.NewEncoder(w).Encode(payload)
}
