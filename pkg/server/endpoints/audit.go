package endpoints

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/server"
)

func RegisterAuditEndpoints(s *server.Server) {
	log := s.Log.WithField("component", "endpoints")

	auditRouter := s.Router.PathPrefix("/audit").Subrouter()
	auditRouter.Use(s.JWTMiddleware.Middleware)

	// GET /audit - Paginated audit trail, global administrators only
	auditRouter.HandleFunc("", handleListAuditLogs(s.Audit, s.Access, log)).Methods("GET")
}

func timeParam(r *http.Request, name string, problems map[string]string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse("2006-01-02", raw); err != nil {
			problems[name] = "must be an RFC 3339 timestamp or a date"
			return nil
		}
	}
	return &t
}

func handleListAuditLogs(recorder *audit.Recorder, builder *access.Builder, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := builder.Build(r.Context(), caller(r).UserID)
		if err != nil {
			log.WithError(err).Error("failed to build access context")
			respondWithError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		if !ac.IsAdmin {
			respondWithError(w, http.StatusForbidden, "Unauthorized")
			return
		}

		q := r.URL.Query()
		problems := map[string]string{}
		filter := audit.Filter{
			Actor:     q.Get("actor"),
			Action:    q.Get("action"),
			Search:    q.Get("q"),
			From:      timeParam(r, "from", problems),
			To:        timeParam(r, "to", problems),
			SortBy:    q.Get("sortBy"),
			SortOrder: q.Get("sortOrder"),
			Page:      intParam(r, "page", problems),
			PageSize:  intParam(r, "pageSize", problems),
		}
		if filter.Action != "" {
			if _, err := audit.ActionString(filter.Action); err != nil {
				problems["action"] = "is not a known action"
			}
		}
		if len(problems) > 0 {
			respondWithValidation(w, problems)
			return
		}

		page, err := recorder.Query(r.Context(), filter)
		if err != nil {
			log.WithError(err).Error("failed to query audit logs")
			respondWithError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		respondWithJSON(w, http.StatusOK, page)
	}
}
