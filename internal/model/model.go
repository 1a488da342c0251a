// Package model holds the wire and in-process data types shared across the
// claim-verification pipeline: evidence, citations, verdicts, and the
// pending-review record.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Stance is a closed tagged variant describing a single snippet's relation
// to a claim. The wire representation is the three lowercase strings; Unset
// never appears on the wire, only before a Stance Classifier pass has run.
type Stance string

const (
	StanceSupports Stance = "supports"
	StanceRefutes  Stance = "refutes"
	StanceNeutral  Stance = "neutral"
	StanceUnset    Stance = ""
)

// Verdict is the closed enum of terminal labels returned to a caller.
type Verdict string

const (
	VerdictSupported         Verdict = "Supported"
	VerdictRefuted           Verdict = "Refuted"
	VerdictNotEnoughEvidence Verdict = "Not Enough Evidence"
	VerdictMixedDisputed     Verdict = "Mixed / Disputed"
	VerdictUnverifiable      Verdict = "Unverifiable"
)

// EvidenceItem is a single piece of retrieved evidence flowing through the
// pipeline. Identity is the URL: two items with equal URL are duplicates.
// Score carries whatever the most recent scoring stage assigned — retrieval
// distance, cross-encoder relevance, or the reranker's hybrid score.
type EvidenceItem struct {
	Title   string
	URL     string
	Snippet string
	Source  string // "web", "rag", or a domain-label carried from metadata.
	Score   float32
	Stance  Stance
}

// Citation is the response-shape projection of an EvidenceItem.
type Citation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// CitationsFromEvidence projects evidence items into citations, preserving order.
func CitationsFromEvidence(items []EvidenceItem) []Citation {
	if len(items) == 0 {
		return nil
	}
	out := make([]Citation, len(items))
	for i, it := range items {
		out[i] = Citation{Title: it.Title, URL: it.URL, Snippet: it.Snippet}
	}
	return out
}

// SubResult is the full result of verifying one (sub-)claim. A non-decomposed
// claim's pipeline output is carried as a single-element aggregate input, so
// the same type serves both the per-sub-claim detail and the overall result.
type SubResult struct {
	Claim     string     `json:"claim"`
	Verdict   Verdict    `json:"verdict"`
	Reasoning string     `json:"reasoning"`
	Citations []Citation `json:"citations"`
}

// PendingReview is a human-review record created when the orchestrator flags
// ambiguity. Keyed by an opaque claim_id synthesized from the claim hash and
// the creation time; destroyed when a reviewer submits a decision.
type PendingReview struct {
	Claim     string     `json:"claim"`
	Verdict   Verdict    `json:"verdict"`
	Reasoning string     `json:"reasoning"`
	Citations []Citation `json:"citations"`
	CreatedAt time.Time  `json:"created_at"`
}

// SearchResult is a single (title, url, snippet) triple returned by the Web
// Search Client, before it is promoted to an EvidenceItem.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// StoredChunk is one ingested evidence chunk as held by the Vector Store: an
// embedded slice of source text plus the metadata the Retriever and Reranker
// filter and score on.
type StoredChunk struct {
	ID uuid.UUID
	// ChunkKey is the logical "ca_<sha256(url)[0:16]>_<idx>" identifier
	// (§8) the point ID is derived from. The point ID itself has to be a
	// UUID or Qdrant rejects it, so ChunkKey is carried in the payload
	// instead, making the §8 derivation checkable against stored data.
	ChunkKey       string
	URL            string
	Domain         string
	Title          string
	Text           string
	CurrentAffairs bool
	IngestedAt     time.Time
	Embedding      []float32
}

// ScoredChunk is a single hit returned by a Vector Store query, carrying the
// similarity score computed from cosine distance (§4.5: score = 1 - distance/2).
type ScoredChunk struct {
	StoredChunk
	Score float32
}
