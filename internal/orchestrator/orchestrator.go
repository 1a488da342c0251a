// Package orchestrator implements the agentic loop (§4.13): per iteration it
// fans Web Agent and RAG Retriever out in parallel, merges and reranks their
// evidence, classifies stance, and decides whether to widen the search or
// stop. It also runs the Claim Decomposer ahead of the loop and the Verdict
// Aggregator after it, so a compound claim resolves as independently
// verified sub-claims synthesized into one result (§4.15, §4.16).
//
// The parallel fan-out-then-join shape is grounded on
// internal/conflicts/scorer.go's golang.org/x/sync/errgroup usage; the
// top-level panic recovery that converts a pipeline fault into the safe
// default result is grounded on internal/server/middleware.go's
// recoveryMiddleware, one level further down the call stack than an HTTP
// handler.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/veritas/internal/aggregate"
	"github.com/ashita-ai/veritas/internal/decompose"
	"github.com/ashita-ai/veritas/internal/evaluate"
	"github.com/ashita-ai/veritas/internal/merge"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/rag"
	"github.com/ashita-ai/veritas/internal/rerank"
	"github.com/ashita-ai/veritas/internal/review"
	"github.com/ashita-ai/veritas/internal/stance"
	"github.com/ashita-ai/veritas/internal/verdict"
	"github.com/ashita-ai/veritas/internal/webagent"
)

// maxWidenedTopK bounds how far an iteration's widening step can grow topK.
const maxWidenedTopK = 20

// widenStep is how much topK grows on each unsuccessful iteration.
const widenStep = 5

// Config holds the orchestrator's tunable knobs (§6).
type Config struct {
	MaxIter           int
	InitialTopK       int
	RerankTopK        int
	MinSourcesVerdict int
}

// Result is a completed verification, safe to return to an HTTP caller
// directly.
type Result struct {
	model.SubResult
	SubResults      []model.SubResult
	RequiresReview  bool
	ClaimID         string
}

// Orchestrator wires together one full verification pipeline run.
type Orchestrator struct {
	cfg        Config
	webAgent   *webagent.Agent
	retriever  *rag.Retriever
	reranker   *rerank.Reranker
	classifier *stance.Classifier
	former     *verdict.Former
	decomposer *decompose.Decomposer
	aggregator *aggregate.Aggregator
	reviews    *review.Queue
	logger     *slog.Logger
}

// New wires an Orchestrator from its component stages.
func New(
	cfg Config,
	webAgent *webagent.Agent,
	retriever *rag.Retriever,
	reranker *rerank.Reranker,
	classifier *stance.Classifier,
	former *verdict.Former,
	decomposer *decompose.Decomposer,
	aggregator *aggregate.Aggregator,
	reviews *review.Queue,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 3
	}
	if cfg.InitialTopK <= 0 {
		cfg.InitialTopK = 10
	}
	if cfg.RerankTopK <= 0 {
		cfg.RerankTopK = 25
	}
	if cfg.MinSourcesVerdict <= 0 {
		cfg.MinSourcesVerdict = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		webAgent:   webAgent,
		retriever:  retriever,
		reranker:   reranker,
		classifier: classifier,
		former:     former,
		decomposer: decomposer,
		aggregator: aggregator,
		reviews:    reviews,
		logger:     logger,
	}
}

// safeResult is what's returned when a pipeline-internal fault would
// otherwise become a 5xx with no body (§4.13, §7): the orchestrator is the
// last line of defense before the HTTP boundary.
func safeResult(claim string) Result {
	return Result{
		SubResult: model.SubResult{
			Claim:     claim,
			Verdict:   model.VerdictNotEnoughEvidence,
			Reasoning: "An internal error prevented this claim from being verified.",
		},
	}
}

// Verify decomposes claim into sub-claims, runs the agentic loop
// independently for each, and aggregates their results into one Result.
// Any unhandled panic anywhere in the pipeline is recovered here and
// converted into the safe Not Enough Evidence result (§4.13).
func (o *Orchestrator) Verify(ctx context.Context, claim string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator: panic recovered",
				"panic", r, "stack", string(debug.Stack()), "claim", claim)
			result = safeResult(claim)
		}
	}()

	subClaims := []string{claim}
	if o.decomposer != nil {
		subClaims = o.decomposer.Decompose(ctx, claim)
	}

	subResults := make([]model.SubResult, len(subClaims))
	g, gCtx := errgroup.WithContext(ctx)
	for i, sub := range subClaims {
		g.Go(func() (err error) {
			// A panic inside this goroutine would otherwise crash the process:
			// errgroup only propagates returned errors, not panics, across
			// goroutine boundaries, so each sub-claim run needs its own
			// recovery in addition to Verify's top-level one.
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("orchestrator: panic recovered in sub-claim run",
						"panic", r, "stack", string(debug.Stack()), "claim", sub)
					subResults[i] = safeResult(sub).SubResult
				}
			}()
			subResults[i] = o.runLoop(gCtx, sub)
			return nil
		})
	}
	_ = g.Wait() // each sub-claim run fails soft into its own Not Enough Evidence result

	var aggregated model.SubResult
	if o.aggregator != nil {
		var err error
		aggregated, err = o.aggregator.Aggregate(ctx, subResults)
		if err != nil {
			aggregated = model.SubResult{Verdict: model.VerdictNotEnoughEvidence, Reasoning: "No sub-results to aggregate."}
		}
	} else if len(subResults) > 0 {
		aggregated = subResults[0]
	}
	if aggregated.Claim == "" {
		aggregated.Claim = claim
	}

	out := Result{SubResult: aggregated}
	if len(subClaims) > 1 {
		out.SubResults = subResults
	}

	sufficient := evaluate.IsSufficient(citationsAsEvidence(aggregated), o.cfg.MinSourcesVerdict)
	conflict := aggregated.Verdict == model.VerdictMixedDisputed
	if !sufficient || conflict {
		out.RequiresReview = true
		out.ClaimID = synthesizeClaimID(claim)
		if o.reviews != nil {
			o.reviews.Put(out.ClaimID, model.PendingReview{
				Claim:     claim,
				Verdict:   aggregated.Verdict,
				Reasoning: aggregated.Reasoning,
				Citations: aggregated.Citations,
				CreatedAt: time.Now(),
			})
		}
	}
	return out
}

// runLoop executes the agentic loop for a single (sub-)claim (§4.13).
func (o *Orchestrator) runLoop(ctx context.Context, claim string) model.SubResult {
	topK := o.cfg.InitialTopK
	currentAffairsOnly := false

	var evidence []model.EvidenceItem
	for iter := 0; iter < o.cfg.MaxIter; iter++ {
		webItems, ragItems := o.fetchParallel(ctx, claim, topK, currentAffairsOnly)
		merged := merge.Merge(webItems, ragItems)

		if len(merged) == 0 {
			topK = min(topK+widenStep, maxWidenedTopK)
			currentAffairsOnly = true
			continue
		}

		reranked := merged
		if o.reranker != nil {
			var err error
			reranked, err = o.reranker.Rerank(ctx, claim, merged, o.cfg.RerankTopK)
			if err != nil {
				reranked = merged
			}
		}

		if o.classifier != nil {
			var err error
			reranked, err = o.classifier.Classify(ctx, claim, reranked)
			if err != nil {
				o.logger.Warn("orchestrator: stance classification failed", "error", err, "claim", claim)
			}
		}

		evidence = reranked
		sufficient := evaluate.IsSufficient(evidence, o.cfg.MinSourcesVerdict)
		conflict := evaluate.HasConflict(evidence)
		if sufficient && !conflict {
			break
		}
		topK = min(topK+widenStep, maxWidenedTopK)
		currentAffairsOnly = true
	}

	if o.former == nil {
		return model.SubResult{Claim: claim, Verdict: model.VerdictNotEnoughEvidence}
	}
	sub, err := o.former.Form(ctx, claim, evidence, o.cfg.MinSourcesVerdict)
	if err != nil {
		return model.SubResult{Claim: claim, Verdict: model.VerdictNotEnoughEvidence, Reasoning: "Verdict formation failed."}
	}
	return sub
}

// fetchParallel runs the Web Agent and RAG Retriever concurrently (§4.13
// step 1, §5). Neither branch may fail the request: a failing branch simply
// contributes no evidence.
func (o *Orchestrator) fetchParallel(ctx context.Context, claim string, topK int, currentAffairsOnly bool) ([]model.EvidenceItem, []model.EvidenceItem) {
	var webItems, ragItems []model.EvidenceItem

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if o.webAgent == nil {
			return nil
		}
		items, err := o.webAgent.Run(gCtx, claim)
		if err != nil {
			o.logger.Warn("orchestrator: web agent failed", "error", err, "claim", claim)
			return nil
		}
		webItems = items
		return nil
	})
	g.Go(func() error {
		if o.retriever == nil {
			return nil
		}
		items, err := o.retriever.Retrieve(gCtx, claim, topK, currentAffairsOnly)
		if err != nil {
			o.logger.Warn("orchestrator: rag retriever failed", "error", err, "claim", claim)
			return nil
		}
		ragItems = items
		return nil
	})
	_ = g.Wait()

	return webItems, ragItems
}

// citationsAsEvidence adapts a SubResult's citations to the shape
// evaluate.IsSufficient expects, since the final sufficiency check runs
// against what actually survived into the formed verdict, not the
// pre-verdict evidence list.
func citationsAsEvidence(sub model.SubResult) []model.EvidenceItem {
	out := make([]model.EvidenceItem, len(sub.Citations))
	for i, c := range sub.Citations {
		out[i] = model.EvidenceItem{URL: c.URL}
	}
	return out
}

// synthesizeClaimID builds the opaque review-queue key (§4.13): the first 16
// hex characters of the claim's SHA-256 hash, joined to the current Unix
// timestamp so repeated submissions of the same claim get distinct entries.
func synthesizeClaimID(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return fmt.Sprintf("%s_%d", hex.EncodeToString(sum[:])[:16], time.Now().Unix())
}
