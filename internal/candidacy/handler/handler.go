// Package handler wires candidacy lifecycle endpoints to the candidacy service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/platform/httputil"
	"talentgate/pkg/requestcontext"
)

// Service defines the candidacy operations the handler exposes.
type Service interface {
	Create(ctx context.Context, vacancyID id.VacancyID, candidateID id.CandidateID, companyID id.CompanyID) (*models.Candidacy, error)
	Get(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error)
	RequestVideo(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error)
	SubmitVideo(ctx context.Context, candidacyID id.CandidacyID, fileRef string) (*models.Candidacy, error)
	ViewVideo(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error)
	DecideFeedback(ctx context.Context, candidacyID id.CandidacyID, status models.FeedbackStatus, justification string) (*models.Candidacy, error)
	RecordAnalysis(ctx context.Context, candidacyID id.CandidacyID, submissionID string, result json.RawMessage) (*models.Candidacy, error)
}

// Handler wires candidacy endpoints to the candidacy service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a candidacy handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts candidacy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/candidacies", h.HandleCreate)
	r.Get("/candidacies/{candidacyID}", h.HandleGet)
	r.Post("/candidacies/{candidacyID}/video/request", h.HandleRequestVideo)
	r.Post("/candidacies/{candidacyID}/video/submission", h.HandleSubmitVideo)
	r.Post("/candidacies/{candidacyID}/video/view", h.HandleViewVideo)
	r.Post("/candidacies/{candidacyID}/feedback", h.HandleDecideFeedback)
	r.Post("/candidacies/{candidacyID}/analysis", h.HandleRecordAnalysis)
}

// HandleCreate handles POST /candidacies requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if !h.requireRole(w, ctx, id.RoleCandidate, id.RoleCompany) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, req.ParsedVacancyID(), req.ParsedCandidateID(), req.ParsedCompanyID())
	if err != nil {
		h.logger.ErrorContext(ctx, "candidacy creation failed",
			"request_id", requestID,
			"vacancy_id", req.VacancyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "candidacy created",
		"request_id", requestID,
		"candidacy_id", c.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

// HandleGet handles GET /candidacies/{candidacyID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	candidacyID, ok := h.candidacyID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(ctx, candidacyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !h.authorizeParty(w, ctx, c) {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

// HandleRequestVideo handles POST /candidacies/{candidacyID}/video/request requests.
func (h *Handler) HandleRequestVideo(w http.ResponseWriter, r *http.Request) {
	h.applySimple(w, r, id.RoleCompany, "video request", h.service.RequestVideo)
}

// HandleSubmitVideo handles POST /candidacies/{candidacyID}/video/submission requests.
func (h *Handler) HandleSubmitVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.requireRole(w, ctx, id.RoleCandidate) {
		return
	}

	candidacyID, ok := h.candidacyID(w, r)
	if !ok {
		return
	}
	if !h.authorizePartyByID(w, ctx, candidacyID) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitVideoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.SubmitVideo(ctx, candidacyID, req.FileRef)
	if err != nil {
		h.logger.ErrorContext(ctx, "video submission failed",
			"request_id", requestID,
			"candidacy_id", candidacyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

// HandleViewVideo handles POST /candidacies/{candidacyID}/video/view requests.
func (h *Handler) HandleViewVideo(w http.ResponseWriter, r *http.Request) {
	h.applySimple(w, r, id.RoleCompany, "video view", h.service.ViewVideo)
}

// HandleDecideFeedback handles POST /candidacies/{candidacyID}/feedback requests.
func (h *Handler) HandleDecideFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.requireRole(w, ctx, id.RoleCompany) {
		return
	}

	candidacyID, ok := h.candidacyID(w, r)
	if !ok {
		return
	}
	if !h.authorizePartyByID(w, ctx, candidacyID) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecideFeedbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.DecideFeedback(ctx, candidacyID, req.ParsedStatus(), req.Justification)
	if err != nil {
		h.logger.ErrorContext(ctx, "feedback decision failed",
			"request_id", requestID,
			"candidacy_id", candidacyID,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "feedback decided",
		"request_id", requestID,
		"candidacy_id", candidacyID,
		"status", req.Status,
	)

	httputil.WriteJSON(w, http.StatusOK, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

// HandleRecordAnalysis handles POST /candidacies/{candidacyID}/analysis requests.
// This is the callback surface for the scoring service.
func (h *Handler) HandleRecordAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.requireRole(w, ctx, id.RoleSystem) {
		return
	}

	candidacyID, ok := h.candidacyID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RecordAnalysisRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.RecordAnalysis(ctx, candidacyID, req.SubmissionID, req.Result)
	if err != nil {
		h.logger.ErrorContext(ctx, "analysis recording failed",
			"request_id", requestID,
			"candidacy_id", candidacyID,
			"submission_id", req.SubmissionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

// applySimple factors the body-less transition endpoints.
func (h *Handler) applySimple(w http.ResponseWriter, r *http.Request, role id.ActorRole, action string, apply func(context.Context, id.CandidacyID) (*models.Candidacy, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.requireRole(w, ctx, role) {
		return
	}

	candidacyID, ok := h.candidacyID(w, r)
	if !ok {
		return
	}
	if !h.authorizePartyByID(w, ctx, candidacyID) {
		return
	}

	c, err := apply(ctx, candidacyID)
	if err != nil {
		h.logger.ErrorContext(ctx, action+" failed",
			"request_id", requestID,
			"candidacy_id", candidacyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCandidacy(c, requestcontext.Actor(ctx).Role))
}

func (h *Handler) candidacyID(w http.ResponseWriter, r *http.Request) (id.CandidacyID, bool) {
	candidacyID, err := id.ParseCandidacyID(chi.URLParam(r, "candidacyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CandidacyID{}, false
	}
	return candidacyID, true
}

func (h *Handler) requireRole(w http.ResponseWriter, ctx context.Context, roles ...id.ActorRole) bool {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return false
	}
	for _, role := range roles {
		if actor.Role == role {
			return true
		}
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation"))
	return false
}

// authorizePartyByID loads the candidacy so transition endpoints can
// verify party membership before the event reaches the service.
func (h *Handler) authorizePartyByID(w http.ResponseWriter, ctx context.Context, candidacyID id.CandidacyID) bool {
	c, err := h.service.Get(ctx, candidacyID)
	if err != nil {
		httputil.WriteError(w, err)
		return false
	}
	return h.authorizeParty(w, ctx, c)
}

// authorizeParty restricts access to the parties of the candidacy.
func (h *Handler) authorizeParty(w http.ResponseWriter, ctx context.Context, c *models.Candidacy) bool {
	actor := requestcontext.Actor(ctx)
	switch actor.Role {
	case id.RoleSystem:
		return true
	case id.RoleCompany:
		if actor.CompanyID == c.CompanyID {
			return true
		}
	case id.RoleCandidate:
		if actor.CandidateID == c.CandidateID {
			return true
		}
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not a party to this candidacy"))
	return false
}
