package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/identity"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

// maxBodyBytes bounds request bodies, FILE uploads included.
const maxBodyBytes = 16 << 20

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithValidation(w http.ResponseWriter, fields map[string]string) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fields})
}

// respondWithVaultError maps service errors onto status codes. Internal
// errors are already logged by the service and are never echoed.
func respondWithVaultError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var verr *vault.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithValidation(w, verr.Fields)
	case errors.Is(err, vault.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, vault.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, vault.ErrVersionConflict):
		respondWithError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, vault.ErrUndecryptable):
		respondWithValidation(w, map[string]string{
			"fields": "a stored secret could not be decrypted; supply a new value",
		})
	default:
		log.WithError(err).Error("request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal error")
	}
}

// decodeJSON reads a JSON body into v. On failure it has already responded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

func caller(r *http.Request) vault.Caller {
	id, ok := identity.Get(r.Context())
	if !ok {
		return vault.Caller{}
	}
	return vault.Caller{UserID: id.UserID, SourceAddress: id.SourceAddress()}
}

// intParam parses a query parameter, recording a problem when malformed.
func intParam(r *http.Request, name string, problems map[string]string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		problems[name] = "must be an integer"
		return 0
	}
	return v
}
