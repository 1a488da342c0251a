// Package vectorstore wraps a Qdrant collection as the Vector Store (§4.5):
// the knowledge base the RAG Retriever queries and the KB Refresh Job
// rebuilds. Adapted from internal/search/qdrant.go's QdrantIndex — the same
// URL-parsing, HNSW collection setup, and upsert/delete shape — generalized
// from a single fixed "decisions" collection tied to one org to an arbitrary
// named collection, since the refresh job builds a fresh staging collection
// before promoting it over the live one (§4.14).
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/telemetry"
)

var tracer = telemetry.Tracer("veritas/vectorstore")

// Config holds configuration for connecting to Qdrant.
type Config struct {
	URL    string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey string
	Dims   uint64
}

const scrollPageSize = 256

// Store implements evidence-chunk storage and similarity search backed by
// Qdrant. Unlike the teacher's QdrantIndex, a Store is not bound to one
// collection: every operation takes the collection name explicitly, so one
// Store can serve both the live collection and a refresh job's staging
// collection.
type Store struct {
	client *qdrant.Client
	dims   uint64
	logger *slog.Logger

	healthMu  sync.Mutex
	lastCheck time.Time
	lastErr   error
}

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// Accepts forms like "https://host:6333" or "http://host:6334"; a URL with no
// scheme, such as "host:6334", has no host part and is rejected.
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("vectorstore: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("vectorstore: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// New creates a Store and connects to the Qdrant server via gRPC.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &Store{client: client, dims: cfg.Dims, logger: logger}, nil
}

// CollectionExists reports whether the named collection exists.
func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("vectorstore: check collection %q exists: %w", collection, err)
	}
	return exists, nil
}

// EnsureCollection creates the named collection if it doesn't already exist,
// with HNSW parameters tuned for cosine similarity, plus payload indexes on
// the fields the Retriever filters by.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	m := uint64(16)
	efConstruct := uint64(128)

	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dims,
			Distance: qdrant.Distance_Cosine,
			HnswConfig: &qdrant.HnswConfigDiff{
				M:           &m,
				EfConstruct: &efConstruct,
			},
		}),
	}); err != nil {
		return fmt.Errorf("vectorstore: create collection %q: %w", collection, err)
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	for _, field := range []string{"url", "domain"} {
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      &keywordType,
		}); err != nil {
			return fmt.Errorf("vectorstore: create index on %q: %w", field, err)
		}
	}

	boolType := qdrant.FieldType_FieldTypeBool
	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      "current_affairs",
		FieldType:      &boolType,
	}); err != nil {
		return fmt.Errorf("vectorstore: create index on current_affairs: %w", err)
	}

	s.logger.Info("vectorstore: created collection", "collection", collection, "dims", s.dims)
	return nil
}

// Query runs a similarity search against collection. When currentAffairsOnly
// is set, only chunks ingested from current-affairs sources are considered
// (§4.6, §4.13 widening).
func (s *Store) Query(ctx context.Context, collection string, embedding []float32, topK int, currentAffairsOnly bool) ([]model.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "vectorstore.Query", trace.WithAttributes(
		attribute.String("vectorstore.collection", collection),
		attribute.Int("vectorstore.top_k", topK),
		attribute.Bool("vectorstore.current_affairs_only", currentAffairsOnly),
	))
	defer span.End()

	var filter *qdrant.Filter
	if currentAffairsOnly {
		filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchBool("current_affairs", true)}}
	}

	limit := uint64(topK)
	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(embedding),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("vectorstore: query collection %q: %w", collection, err)
	}

	results := make([]model.ScoredChunk, 0, len(scored))
	for _, sp := range scored {
		chunk, ok := chunkFromPayload(sp.Id, sp.Payload)
		if !ok {
			continue
		}
		// Qdrant reports cosine similarity s in [-1, 1]; with cosine
		// distance d = 1 - s, the §4.5 score 1 - d/2 equals (1 + s) / 2.
		results = append(results, model.ScoredChunk{StoredChunk: chunk, Score: (1 + sp.Score) / 2})
	}
	span.SetAttributes(attribute.Int("vectorstore.result_count", len(results)))
	return results, nil
}

// Add upserts chunks into collection.
func (s *Store) Add(ctx context.Context, collection string, chunks []model.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "vectorstore.Add", trace.WithAttributes(
		attribute.String("vectorstore.collection", collection),
		attribute.Int("vectorstore.chunk_count", len(chunks)),
	))
	defer span.End()

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(c.ID.String()),
			Vectors: qdrant.NewVectorsDense(c.Embedding),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_key":       c.ChunkKey,
				"url":             c.URL,
				"domain":          c.Domain,
				"title":           c.Title,
				"text":            c.Text,
				"current_affairs": c.CurrentAffairs,
				"ingested_at":     c.IngestedAt.Unix(),
			}),
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("vectorstore: upsert %d points into %q: %w", len(chunks), collection, err)
	}
	return nil
}

// GetAll returns every chunk stored in collection, page by page. Used by the
// KB Refresh Job when promoting a staging collection over the live one.
func (s *Store) GetAll(ctx context.Context, collection string) ([]model.StoredChunk, error) {
	var (
		all    []model.StoredChunk
		offset *qdrant.PointId
	)

	for {
		resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithVectors:    qdrant.NewWithVectors(true),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: scroll collection %q: %w", collection, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, rp := range resp {
			chunk, ok := chunkFromPayload(rp.Id, rp.Payload)
			if !ok {
				continue
			}
			if rp.Vectors != nil {
				chunk.Embedding = rp.Vectors.GetVector().GetData()
			}
			all = append(all, chunk)
		}

		if len(resp) < scrollPageSize {
			break
		}
		offset = resp[len(resp)-1].Id
	}

	return all, nil
}

// DeleteCollection drops collection. Calling it on a collection that
// doesn't exist is not an error.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("vectorstore: delete collection %q: %w", collection, err)
	}
	return nil
}

// Promote replaces live with the contents of staging: the existing live
// collection is dropped, staging's points are copied into a freshly created
// live collection, and staging is dropped. The refresh job builds the new
// knowledge base into staging before calling Promote, so queries against
// live only ever see a complete generation (§4.14).
func (s *Store) Promote(ctx context.Context, staging, live string) error {
	chunks, err := s.GetAll(ctx, staging)
	if err != nil {
		return fmt.Errorf("vectorstore: read staging collection %q: %w", staging, err)
	}

	if err := s.DeleteCollection(ctx, live); err != nil {
		return fmt.Errorf("vectorstore: drop live collection %q: %w", live, err)
	}
	if err := s.EnsureCollection(ctx, live); err != nil {
		return fmt.Errorf("vectorstore: recreate live collection %q: %w", live, err)
	}
	if err := s.Add(ctx, live, chunks); err != nil {
		return fmt.Errorf("vectorstore: copy into live collection %q: %w", live, err)
	}
	if err := s.DeleteCollection(ctx, staging); err != nil {
		return fmt.Errorf("vectorstore: drop staging collection %q: %w", staging, err)
	}

	s.logger.Info("vectorstore: promoted staging collection", "staging", staging, "live", live, "chunks", len(chunks))
	return nil
}

// Healthy returns nil if Qdrant is reachable. Results are cached for 5
// seconds to avoid hammering the health endpoint on every request.
func (s *Store) Healthy(ctx context.Context) error {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.lastCheck) < 5*time.Second {
		return s.lastErr
	}

	_, err := s.client.HealthCheck(ctx)
	s.lastCheck = time.Now()
	if err != nil {
		s.lastErr = fmt.Errorf("vectorstore: qdrant unhealthy: %w", err)
	} else {
		s.lastErr = nil
	}
	return s.lastErr
}

// Close shuts down the Qdrant gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func chunkFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) (model.StoredChunk, bool) {
	idStr := id.GetUuid()
	if idStr == "" {
		return model.StoredChunk{}, false
	}
	chunkID, err := uuid.Parse(idStr)
	if err != nil {
		return model.StoredChunk{}, false
	}

	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	var ingestedAt time.Time
	if v, ok := payload["ingested_at"]; ok {
		ingestedAt = time.Unix(v.GetIntegerValue(), 0).UTC()
	}

	currentAffairs := false
	if v, ok := payload["current_affairs"]; ok {
		currentAffairs = v.GetBoolValue()
	}

	return model.StoredChunk{
		ID:             chunkID,
		ChunkKey:       get("chunk_key"),
		URL:            get("url"),
		Domain:         get("domain"),
		Title:          get("title"),
		Text:           get("text"),
		CurrentAffairs: currentAffairs,
		IngestedAt:     ingestedAt,
	}, true
}
