package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/azcops/azcops/pkg/adapters"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/server/middleware"
	"github.com/azcops/azcops/pkg/services/ingestion"
	"github.com/rs/zerolog"
)

// Runner starts an ingestion run for the configured tenant.
type Runner interface {
	Run(ctx context.Context, opts ingestion.Options) (domain.TenantIngestionResult, error)
}

type Handler struct {
	runner Runner
	opts   ingestion.Options
}

// NewHandler wires the trigger endpoint. The defaults carry the configured
// lookback window and budget; per-request query parameters override mode.
func NewHandler(runner Runner, defaults ingestion.Options) *Handler {
	return &Handler{runner: runner, opts: defaults}
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	opts := h.opts
	opts.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "full":
		opts.CostOnly = false
	case "incremental":
		opts.CostOnly = true
	default:
		http.Error(w, "unknown mode: "+mode+". Expected 'full' or 'incremental'", http.StatusBadRequest)
		return
	}

	if raw := r.URL.Query().Get("cost_lookback_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			http.Error(w, "invalid 'cost_lookback_days' parameter", http.StatusBadRequest)
			return
		}
		opts.CostLookbackDays = days
	}

	result, err := h.runner.Run(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Msg("ingestion run failed")
		http.Error(w, "ingestion run failed", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(adapters.MapDomainIngestionResultToAPI(result)); err != nil {
		logger.Error().Err(err).Msg("failed to encode ingestion result")
	}
}
