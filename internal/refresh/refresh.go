// Package refresh implements the KB Refresh Job (§4.14): a background
// ticker that re-seeds the current_affairs_24h collection from a fixed list
// of search queries, chunks and embeds the results into a staging
// collection, then atomically promotes it over the live one. Grounded on
// cmd/akashi/main.go's conflictRefreshLoop/integrityProofLoop/
// idempotencyCleanupLoop: a time.NewTicker driving a select over ctx.Done
// and ticker.C, with a per-cycle context.WithTimeout so one slow cycle
// can't block shutdown or the next run.
package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/veritas/internal/embedding"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/urlutil"
	"github.com/ashita-ai/veritas/internal/vectorstore"
	"github.com/ashita-ai/veritas/internal/websearch"
)

// chunkIDNamespace is a fixed namespace UUID used to derive a deterministic
// point ID from each chunk's "ca_<hash>_<idx>" identifier, so re-running the
// job against the same source content produces the same point IDs.
var chunkIDNamespace = uuid.MustParse("6f6d6272-6573-5f6b-625f-726566726573")

// Config holds the tunables for a refresh cycle (§4.14).
type Config struct {
	Queries            []string
	NumResultsPerQuery int
	ChunkMaxChars      int
	ChunkOverlap       int
	EmbedBatchSize     int
	Interval           time.Duration

	LiveCollection    string // "current_affairs_24h"
	StagingCollection string // "current_affairs_24h_new"
}

// Job runs the KB Refresh Job on its own ticker, independent of request
// serving.
type Job struct {
	cfg       Config
	searcher  websearch.Searcher
	embedder  embedding.Provider
	store     *vectorstore.Store
	credible  urlutil.CredibleSet
	logger    *slog.Logger
}

// New creates a Job. Defaults mirror SPEC_FULL.md's configuration surface.
func New(cfg Config, searcher websearch.Searcher, embedder embedding.Provider, store *vectorstore.Store, credible urlutil.CredibleSet, logger *slog.Logger) *Job {
	if cfg.NumResultsPerQuery <= 0 {
		cfg.NumResultsPerQuery = 10
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = 512
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.LiveCollection == "" {
		cfg.LiveCollection = "current_affairs_24h"
	}
	if cfg.StagingCollection == "" {
		cfg.StagingCollection = cfg.LiveCollection + "_new"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{cfg: cfg, searcher: searcher, embedder: embedder, store: store, credible: credible, logger: logger}
}

// Run blocks, driving the refresh cycle on cfg.Interval until ctx is
// canceled.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, j.cfg.Interval)
			if err := j.RunOnce(opCtx); err != nil {
				j.logger.Warn("refresh: cycle failed", "error", err)
			}
			cancel()
		}
	}
}

// RunOnce executes a single refresh cycle: search, dedupe, chunk, embed,
// stage, promote. Returns without touching the live collection if the
// search step yields nothing.
func (j *Job) RunOnce(ctx context.Context) error {
	results := j.collect(ctx)
	if len(results) == 0 {
		j.logger.Info("refresh: no search results, skipping cycle")
		return nil
	}

	chunks := j.chunkAll(results)
	if len(chunks) == 0 {
		j.logger.Info("refresh: no chunks produced, skipping cycle")
		return nil
	}

	if err := j.store.DeleteCollection(ctx, j.cfg.StagingCollection); err != nil {
		return fmt.Errorf("refresh: clear staging collection: %w", err)
	}
	if err := j.store.EnsureCollection(ctx, j.cfg.StagingCollection); err != nil {
		return fmt.Errorf("refresh: create staging collection: %w", err)
	}

	if err := j.embedAndInsert(ctx, chunks); err != nil {
		return fmt.Errorf("refresh: embed and insert: %w", err)
	}

	if err := j.store.Promote(ctx, j.cfg.StagingCollection, j.cfg.LiveCollection); err != nil {
		return fmt.Errorf("refresh: promote staging collection: %w", err)
	}

	j.logger.Info("refresh: cycle complete", "results", len(results), "chunks", len(chunks))
	return nil
}

// collect runs every seed query, partitions hits into credible-domain and
// other, then concatenates credible-first and dedupes by URL preserving
// order (§4.14 steps 1-2).
func (j *Job) collect(ctx context.Context) []model.SearchResult {
	var credible, other []model.SearchResult
	for _, q := range j.cfg.Queries {
		for _, r := range j.searcher.Search(ctx, q, j.cfg.NumResultsPerQuery) {
			if j.credible.Has(r.URL) {
				credible = append(credible, r)
			} else {
				other = append(other, r)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}

	seen := make(map[string]bool)
	var ordered []model.SearchResult
	for _, r := range append(credible, other...) {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		ordered = append(ordered, r)
	}
	return ordered
}

type pendingChunk struct {
	id     uuid.UUID
	key    string
	url    string
	domain string
	title  string
	text   string
}

// chunkAll builds "title\n\nsnippet" content for each result and splits it
// into chunks of at most ChunkMaxChars (§4.14 step 3).
func (j *Job) chunkAll(results []model.SearchResult) []pendingChunk {
	var out []pendingChunk
	for _, r := range results {
		content := r.Title + "\n\n" + r.Snippet
		pieces := chunkText(content, j.cfg.ChunkMaxChars, j.cfg.ChunkOverlap)
		for idx, piece := range pieces {
			key := chunkKey(r.URL, idx)
			out = append(out, pendingChunk{
				id:     chunkUUID(key),
				key:    key,
				url:    r.URL,
				domain: urlutil.Domain(r.URL),
				title:  r.Title,
				text:   piece,
			})
		}
	}
	return out
}

// chunkText splits content into a sliding window of maxChars characters,
// each window extended backward to the nearest ". " when possible, stepping
// forward by maxChars-overlap (§4.14 step 3).
func chunkText(content string, maxChars, overlap int) []string {
	if len(content) <= maxChars {
		return []string{content}
	}

	step := maxChars - overlap
	if step <= 0 {
		step = maxChars
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + maxChars
		if end > len(content) {
			end = len(content)
		} else if backoff := strings.LastIndex(content[start:end], ". "); backoff != -1 {
			candidate := start + backoff + 2
			if candidate > start {
				end = candidate
			}
		}

		if start >= end {
			break
		}
		chunks = append(chunks, content[start:end])

		start += step
		if start >= len(content) {
			break
		}
	}
	return chunks
}

// chunkKey derives the logical chunk identifier "ca_" + sha256(url)[0:16] +
// "_" + idx (§4.14 step 4, §8). It is persisted in the chunk's stored
// payload (model.StoredChunk.ChunkKey) so the §8 invariant — every live
// chunk id starts with "ca_" and its first 16 hex chars equal
// sha256(metadata.url)[0:16] — can be checked against stored data, not just
// against the derivation that produced it.
func chunkKey(url string, idx int) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("ca_%s_%d", hex.EncodeToString(sum[:])[:16], idx)
}

// chunkUUID maps a logical chunk key into a deterministic point ID via a
// fixed namespace, since the vector store keys points by uuid.UUID.
func chunkUUID(key string) uuid.UUID {
	return uuid.NewSHA1(chunkIDNamespace, []byte(key))
}

// embedAndInsert embeds chunks in batches of EmbedBatchSize and inserts
// them into the staging collection. Any batch failure aborts the refresh
// without touching the live collection (§4.14).
func (j *Job) embedAndInsert(ctx context.Context, chunks []pendingChunk) error {
	now := time.Now().UTC()
	batchSize := j.cfg.EmbedBatchSize

	for start := 0; start < len(chunks); start += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.text
		}

		vecs, err := j.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embed batch [%d:%d]: expected %d vectors, got %d", start, end, len(batch), len(vecs))
		}

		stored := make([]model.StoredChunk, len(batch))
		for i, c := range batch {
			stored[i] = model.StoredChunk{
				ID:             c.id,
				ChunkKey:       c.key,
				URL:            c.url,
				Domain:         c.domain,
				Title:          c.title,
				Text:           c.text,
				CurrentAffairs: true,
				IngestedAt:     now,
				Embedding:      vecs[i].Slice(),
			}
		}

		if err := j.store.Add(ctx, j.cfg.StagingCollection, stored); err != nil {
			return fmt.Errorf("insert batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}
