package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cellar-backend/api/middleware"
	"github.com/angelmondragon/cellar-backend/api/responses"
	"github.com/angelmondragon/cellar-backend/api/validators"
	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
)

// CatalogList serves one reference list (regions, types, styles, appellations).
func CatalogList[V any](list func(context.Context, access.Actor) ([]V, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if list == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		rows, err := list(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []V{}
		}

		responses.WriteSuccess(w, rows)
	}
}

// CatalogCreate decodes and validates In, then adds one reference row.
func CatalogCreate[In any, V any](create func(context.Context, access.Actor, In) (*V, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if create == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := create(r.Context(), middleware.ActorFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func CatalogDashboard(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		dashboard, err := svc.Dashboard(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dashboard)
	}
}
