package recommendation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/azcops/azcops/pkg/adapters"
	"github.com/azcops/azcops/pkg/models/api"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/services/recommendation"
	recstore "github.com/azcops/azcops/pkg/store/duckdb/recommendation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultListLimit = 100

type Handler struct {
	svc recommendation.Service
}

func NewHandler(svc recommendation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	filter := recstore.ListFilter{
		TenantID:         r.URL.Query().Get("tenant_id"),
		SubscriptionDBID: r.URL.Query().Get("subscription_id"),
		Status:           domain.RecommendationStatus(r.URL.Query().Get("status")),
		Category:         domain.RuleCategory(r.URL.Query().Get("category")),
		Limit:            defaultListLimit,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid 'limit' parameter. Expected a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	recs, err := h.svc.List(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list recommendations")
		http.Error(w, "failed to list recommendations", http.StatusInternalServerError)
		return
	}

	response := make([]api.Recommendation, 0, len(recs))
	for _, rec := range recs {
		response = append(response, adapters.MapDomainRecommendationToAPI(rec))
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode recommendations")
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "id")

	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recstore.ErrNotFound) {
			http.Error(w, "recommendation not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("id", id).Msg("failed to get recommendation")
		http.Error(w, "failed to get recommendation", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(adapters.MapDomainRecommendationToAPI(rec)); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("failed to encode recommendation")
	}
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "id")

	var req api.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	target := domain.RecommendationStatus(req.Status)
	switch target {
	case domain.StatusOpen, domain.StatusApproved, domain.StatusRejected,
		domain.StatusExecuted, domain.StatusDismissed:
	default:
		http.Error(w, "unknown status: "+req.Status, http.StatusBadRequest)
		return
	}

	rec, err := h.svc.TransitionStatus(ctx, id, target)
	if err != nil {
		switch {
		case errors.Is(err, recstore.ErrNotFound):
			http.Error(w, "recommendation not found", http.StatusNotFound)
		case errors.Is(err, recstore.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Str("id", id).Msg("failed to transition recommendation")
			http.Error(w, "failed to transition recommendation", http.StatusInternalServerError)
		}
		return
	}

	if err := json.NewEncoder(w).Encode(adapters.MapDomainRecommendationToAPI(rec)); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("failed to encode recommendation")
	}
}
