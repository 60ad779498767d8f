// Package handler wires the restriction read endpoint to the restriction service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"talentgate/internal/restriction"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/platform/httputil"
	"talentgate/pkg/requestcontext"
)

// Service defines the restriction operations the handler exposes.
type Service interface {
	Evaluate(ctx context.Context, companyID id.CompanyID) (*restriction.View, error)
}

// Handler wires the restriction endpoint to the restriction service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a restriction handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts restriction endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/{companyID}/restriction", h.HandleGetRestriction)
}

// HandleGetRestriction handles GET /companies/{companyID}/restriction requests.
// Companies may read their own view; system actors may read any.
func (h *Handler) HandleGetRestriction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.Actor(ctx)
	switch actor.Role {
	case id.RoleSystem:
	case id.RoleCompany:
		if actor.CompanyID != companyID {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "companies may only read their own restriction"))
			return
		}
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation"))
		return
	}

	view, err := h.service.Evaluate(ctx, companyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "restriction evaluation failed",
			"request_id", requestID,
			"company_id", companyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "restriction evaluated",
		"request_id", requestID,
		"company_id", companyID,
		"blocked", view.Blocked,
		"causes", len(view.Causes),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}
