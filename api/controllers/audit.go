package controllers

import (
	"net/http"

	"github.com/angelmondragon/cellar-backend/api/middleware"
	"github.com/angelmondragon/cellar-backend/api/responses"
	"github.com/angelmondragon/cellar-backend/api/validators"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
)

// AuditLog returns recent audit entries grouped by the user who made them.
func AuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 0, 0, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 5000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.Log(r.Context(), middleware.ActorFromContext(r.Context()), audit.LogFilter{Days: days, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if activity == nil {
			activity = []audit.UserActivity{}
		}

		responses.WriteSuccess(w, activity)
	}
}
