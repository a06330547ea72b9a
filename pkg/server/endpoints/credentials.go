package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/server"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

func RegisterCredentialsEndpoints(s *server.Server) {
	svc := s.Vault
	log := s.Log.WithField("component", "endpoints")

	credentialsRouter := s.Router.PathPrefix("/credentials").Subrouter()
	credentialsRouter.Use(s.JWTMiddleware.Middleware)

	// POST /credentials - Create a credential
	credentialsRouter.HandleFunc("", handleCreateCredential(svc, log)).Methods("POST")

	// GET /credentials - List visible credentials
	credentialsRouter.HandleFunc("", handleListCredentials(svc, log)).Methods("GET")

	// GET /credentials/{id} - Credential with decrypted fields
	credentialsRouter.HandleFunc("/{id}", handleGetCredential(svc, log)).Methods("GET")

	// GET /credentials/{id}/content - Decrypted FILE content
	credentialsRouter.HandleFunc("/{id}/content", handleGetContent(svc, log)).Methods("GET")

	// PATCH /credentials/{id} - Update a credential
	credentialsRouter.HandleFunc("/{id}", handleUpdateCredential(svc, log)).Methods("PATCH")

	// DELETE /credentials/{id} - Delete a credential
	credentialsRouter.HandleFunc("/{id}", handleDeleteCredential(svc, log)).Methods("DELETE")

	// POST /credentials/{id}/shares - Grant a user access
	credentialsRouter.HandleFunc("/{id}/shares", handleCreateShare(svc, log)).Methods("POST")

	// GET /credentials/{id}/shares - List grants
	credentialsRouter.HandleFunc("/{id}/shares", handleListShares(svc, log)).Methods("GET")
}

type createRequest struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Environment string          `json:"environment"`
	IsPersonal  bool            `json:"isPersonal"`
	ExpiresAt   *time.Time      `json:"expiresAt"`
	Fields      json.RawMessage `json:"fields"`
}

func parseType(raw string) (model.CredentialType, bool) {
	t, err := model.CredentialTypeString(strings.ToUpper(raw))
	return t, err == nil
}

func handleCreateCredential(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		t, ok := parseType(req.Type)
		if !ok {
			respondWithValidation(w, map[string]string{
				"type": "must be one of: " + strings.Join(model.CredentialTypeStrings(), ", "),
			})
			return
		}
		var fields vault.Payload
		if len(req.Fields) > 0 && string(req.Fields) != "null" {
			p, err := vault.DecodePayload(t, req.Fields)
			if err != nil {
				respondWithValidation(w, map[string]string{"fields": err.Error()})
				return
			}
			fields = p
		}

		res, err := svc.Create(r.Context(), caller(r), vault.CreateInput{
			Type: t,
			Classification: vault.Classification{
				Name:        req.Name,
				Description: req.Description,
				Category:    req.Category,
				Environment: req.Environment,
				IsPersonal:  req.IsPersonal,
				ExpiresAt:   req.ExpiresAt,
			},
			Fields: fields,
		})
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		w.Header().Set("Location", "/credentials/"+res.ID)
		respondWithJSON(w, http.StatusCreated, res)
	}
}

func handleListCredentials(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		problems := map[string]string{}

		filter := vault.ListFilter{
			Query:       q.Get("query"),
			Category:    q.Get("category"),
			Environment: q.Get("environment"),
			Sort:        q.Get("sort"),
			Order:       q.Get("order"),
			Limit:       intParam(r, "limit", problems),
			Offset:      intParam(r, "offset", problems),
		}
		if raw := q.Get("type"); raw != "" {
			t, ok := parseType(raw)
			if !ok {
				problems["type"] = "is invalid"
			}
			filter.Type = &t
		}
		if len(problems) > 0 {
			respondWithValidation(w, problems)
			return
		}

		items, err := svc.List(r.Context(), caller(r), filter)
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		respondWithJSON(w, http.StatusOK, items)
	}
}

func handleGetCredential(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Get(r.Context(), caller(r), mux.Vars(r)["id"])
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		respondWithJSON(w, http.StatusOK, d)
	}
}

func handleGetContent(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, data, err := svc.FetchContent(r.Context(), caller(r), mux.Vars(r)["id"])
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		contentType := f.FileType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	}
}

// updateRequest distinguishes an absent expiresAt from an explicit null,
// which clears the expiry. Type names the variant of fields, which must
// match the stored type.
type updateRequest struct {
	Version     int             `json:"version"`
	Type        string          `json:"type"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Environment *string         `json:"environment"`
	IsPersonal  *bool           `json:"isPersonal"`
	ExpiresAt   json.RawMessage `json:"expiresAt"`
	Fields      json.RawMessage `json:"fields"`
}

func handleUpdateCredential(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var req updateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in := vault.UpdateInput{
			ExpectedVersion: req.Version,
			Name:            req.Name,
			Description:     req.Description,
			Category:        req.Category,
			Environment:     req.Environment,
			IsPersonal:      req.IsPersonal,
		}
		if len(req.ExpiresAt) > 0 {
			if string(req.ExpiresAt) == "null" {
				in.ClearExpiresAt = true
			} else {
				var at time.Time
				if err := json.Unmarshal(req.ExpiresAt, &at); err != nil {
					respondWithValidation(w, map[string]string{"expiresAt": "must be an RFC 3339 timestamp"})
					return
				}
				in.ExpiresAt = &at
			}
		}

		if len(req.Fields) > 0 && string(req.Fields) != "null" {
			t, ok := parseType(req.Type)
			if !ok {
				respondWithValidation(w, map[string]string{"type": "is required with fields"})
				return
			}
			p, err := vault.DecodePayload(t, req.Fields)
			if err != nil {
				respondWithValidation(w, map[string]string{"fields": err.Error()})
				return
			}
			in.Fields = p
		}

		d, err := svc.Update(r.Context(), caller(r), id, in)
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		respondWithJSON(w, http.StatusOK, d)
	}
}

func handleDeleteCredential(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateShare(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string `json:"userId"`
			Permission string `json:"permission"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		permission, err := access.ActionString(strings.ToUpper(req.Permission))
		if err != nil {
			respondWithValidation(w, map[string]string{
				"permission": "must be one of: " + strings.Join(access.ActionStrings(), ", "),
			})
			return
		}

		v, err := svc.Share(r.Context(), caller(r), mux.Vars(r)["id"], vault.ShareInput{
			UserID:     req.UserID,
			Permission: permission,
		})
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, v)
	}
}

func handleListShares(svc *vault.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shares, err := svc.Shares(r.Context(), caller(r), mux.Vars(r)["id"])
		if err != nil {
			respondWithVaultError(w, log, err)
			return
		}
		respondWithJSON(w, http.StatusOK, shares)
	}
}
