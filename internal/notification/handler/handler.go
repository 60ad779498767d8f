// Package handler wires notification feed endpoints to the notification service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/notification"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/platform/httputil"
	"talentgate/pkg/requestcontext"
)

// Service defines the notification operations the handler exposes.
type Service interface {
	FeedFor(ctx context.Context, viewer notification.Viewer) ([]notification.Notification, error)
	MarkRead(ctx context.Context, viewer notification.Viewer, candidacyID id.CandidacyID, noticeType models.NoticeType) error
	Delete(ctx context.Context, viewer notification.Viewer, candidacyID id.CandidacyID, noticeType models.NoticeType) error
	ClearAll(ctx context.Context, viewer notification.Viewer, candidacyIDs []id.CandidacyID) error
}

// Handler wires notification endpoints to the notification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a notification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleFeed)
	r.Post("/notifications/{candidacyID}/{noticeType}/read", h.HandleMarkRead)
	r.Delete("/notifications/{candidacyID}/{noticeType}", h.HandleDelete)
	r.Post("/notifications/clear", h.HandleClearAll)
}

// HandleFeed handles GET /notifications requests.
func (h *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	viewer, ok := h.viewer(w, ctx)
	if !ok {
		return
	}

	feed, err := h.service.FeedFor(ctx, viewer)
	if err != nil {
		h.logger.ErrorContext(ctx, "feed derivation failed",
			"request_id", requestID,
			"viewer_role", viewer.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "feed derived",
		"request_id", requestID,
		"viewer_role", viewer.Role,
		"entries", len(feed),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromFeed(feed))
}

// HandleMarkRead handles POST /notifications/{candidacyID}/{noticeType}/read requests.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.handleFlag(w, r, "mark notification read", h.service.MarkRead)
}

// HandleDelete handles DELETE /notifications/{candidacyID}/{noticeType} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.handleFlag(w, r, "delete notification", h.service.Delete)
}

// HandleClearAll handles POST /notifications/clear requests.
func (h *Handler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	viewer, ok := h.viewer(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ClearAllRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.ClearAll(ctx, viewer, req.ParsedCandidacyIDs()); err != nil {
		h.logger.ErrorContext(ctx, "clear notifications failed",
			"request_id", requestID,
			"viewer_role", viewer.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, notification.Viewer, id.CandidacyID, models.NoticeType) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	viewer, ok := h.viewer(w, ctx)
	if !ok {
		return
	}

	candidacyID, err := id.ParseCandidacyID(chi.URLParam(r, "candidacyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	noticeType, err := models.ParseNoticeType(strings.ToLower(chi.URLParam(r, "noticeType")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := apply(ctx, viewer, candidacyID, noticeType); err != nil {
		h.logger.ErrorContext(ctx, action+" failed",
			"request_id", requestID,
			"candidacy_id", candidacyID,
			"notice_type", noticeType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) viewer(w http.ResponseWriter, ctx context.Context) (notification.Viewer, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return notification.Viewer{}, false
	}
	if actor.Role != id.RoleCompany && actor.Role != id.RoleCandidate {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only companies and candidates have notification feeds"))
		return notification.Viewer{}, false
	}
	return notification.Viewer{
		Role:        actor.Role,
		CompanyID:   actor.CompanyID,
		CandidateID: actor.CandidateID,
	}, true
}
