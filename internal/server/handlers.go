package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/veritas/internal/claimtext"
	"github.com/ashita-ai/veritas/internal/config"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/orchestrator"
	"github.com/ashita-ai/veritas/internal/review"
)

// maxVerifyBodyBytes bounds a /verify request body.
const maxVerifyBodyBytes = 64 * 1024

// Handlers holds the dependencies every route needs.
type Handlers struct {
	orchestrator *orchestrator.Orchestrator
	reviews      *review.Queue
	cfg          config.Config
	logger       *slog.Logger
	version      string
	startedAt    time.Time
}

// HandlersDeps are the dependencies NewHandlers wires into a Handlers.
type HandlersDeps struct {
	Orchestrator *orchestrator.Orchestrator
	Reviews      *review.Queue
	Config       config.Config
	Logger       *slog.Logger
	Version      string
}

// NewHandlers creates a Handlers.
func NewHandlers(deps HandlersDeps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		orchestrator: deps.Orchestrator,
		reviews:      deps.Reviews,
		cfg:          deps.Config,
		logger:       logger,
		version:      deps.Version,
		startedAt:    time.Now(),
	}
}

type verifyRequest struct {
	Claim string `json:"claim"`
}

type verifyResponse struct {
	Verdict        model.Verdict      `json:"verdict"`
	Reasoning      string             `json:"reasoning"`
	Citations      []model.Citation   `json:"citations"`
	SubResults     []model.SubResult  `json:"sub_results,omitempty"`
	RequiresReview bool               `json:"requires_review,omitempty"`
	ClaimID        string             `json:"claim_id,omitempty"`
}

// HandleVerify implements POST /verify (§6, §4.1): normalizes and validates
// the submitted claim, hard-failing with 400 on intake rejection, then runs
// the full orchestrator pipeline.
func (h *Handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req, maxVerifyBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	normalized := claimtext.Normalize(req.Claim)
	if err := claimtext.Validate(normalized, h.cfg.ClaimMaxLength); err != nil {
		status := http.StatusBadRequest
		writeError(w, r, status, intakeDetail(err))
		return
	}

	if h.orchestrator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "verification pipeline is not configured")
		return
	}

	result := h.orchestrator.Verify(r.Context(), normalized)
	writeJSON(w, r, http.StatusOK, verifyResponse{
		Verdict:        result.Verdict,
		Reasoning:      result.Reasoning,
		Citations:      result.Citations,
		SubResults:     result.SubResults,
		RequiresReview: result.RequiresReview,
		ClaimID:        result.ClaimID,
	})
}

func intakeDetail(err error) string {
	if errors.Is(err, claimtext.ErrEmpty) {
		return "claim must not be empty"
	}
	return err.Error()
}

type pendingReviewsResponse struct {
	ClaimIDs []string `json:"claim_ids"`
}

// HandlePendingReviews implements GET /pending_reviews.
func (h *Handlers) HandlePendingReviews(w http.ResponseWriter, r *http.Request) {
	ids := h.reviews.List()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, r, http.StatusOK, pendingReviewsResponse{ClaimIDs: ids})
}

// HandlePendingReview implements GET /pending_reviews/{id}.
func (h *Handlers) HandlePendingReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, ok := h.reviews.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "no pending review with that claim_id")
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

type reviewDecisionRequest struct {
	Verdict   *model.Verdict `json:"verdict"`
	Reasoning *string        `json:"reasoning"`
}

type statusOKResponse struct {
	Status string `json:"status"`
}

// HandleReviewDecision implements POST /review/{id} (§3: "destroyed when a
// reviewer submits a decision"). The submitted verdict/reasoning, if any,
// are accepted but not persisted anywhere further: the review queue is the
// only place this service holds the record, and resolving it ends its
// lifecycle.
func (h *Handlers) HandleReviewDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reviewDecisionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req, maxVerifyBodyBytes); err != nil {
			writeError(w, r, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	if !h.reviews.Resolve(id) {
		writeError(w, r, http.StatusNotFound, "no pending review with that claim_id")
		return
	}
	writeJSON(w, r, http.StatusOK, statusOKResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth implements GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

// configSnapshot is a redacted view of the running configuration: tunables
// an operator might want to sanity-check, with every API key and base URL
// omitted (§6: "no secrets").
type configSnapshot struct {
	Version            string   `json:"version"`
	ClaimMaxLength     int      `json:"claim_max_length"`
	RAGTopK            int      `json:"rag_top_k"`
	AgenticLoopMaxIter int      `json:"agentic_loop_max_iter"`
	MinSourcesVerdict  int      `json:"min_sources_for_verdict"`
	RerankTopK         int      `json:"rerank_top_k"`
	CredibleDomains    []string `json:"credible_domains"`
	DecomposeEnabled   bool     `json:"decompose_enabled"`
	DecomposeUseLLM    bool     `json:"decompose_use_llm"`
	RefreshInterval    string   `json:"refresh_interval"`
	UptimeSeconds      int64    `json:"uptime_seconds"`
}

// HandleConfig implements GET /config.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, configSnapshot{
		Version:            h.version,
		ClaimMaxLength:     h.cfg.ClaimMaxLength,
		RAGTopK:            h.cfg.RAGTopK,
		AgenticLoopMaxIter: h.cfg.AgenticLoopMaxIter,
		MinSourcesVerdict:  h.cfg.MinSourcesVerdict,
		RerankTopK:         h.cfg.RerankTopK,
		CredibleDomains:    h.cfg.CredibleDomains,
		DecomposeEnabled:   h.cfg.DecomposeEnabled,
		DecomposeUseLLM:    h.cfg.DecomposeUseLLM,
		RefreshInterval:    h.cfg.RefreshInterval.String(),
		UptimeSeconds:      int64(time.Since(h.startedAt).Seconds()),
	})
}
