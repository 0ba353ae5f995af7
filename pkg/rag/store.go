package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/embedder"
	"github.com/clio-ai/clio/pkg/vector"
)

// Store is a size-capped, deduplicating document store over a vector index.
//
// Every ingested document is chunked, fingerprinted, embedded, and indexed.
// Chunks whose content fingerprint was seen before are skipped; batches that
// would push the index past its cap are truncated. Persist and Load move
// the index plus a metadata sidecar to and from disk as a pair.
type Store struct {
	mu           sync.RWMutex
	index        vector.Index
	embedder     embedder.Embedder
	chunker      *Chunker
	metrics      *Metrics
	maxDocuments int
	searchLimit  int
	fingerprints map[string]struct{}
}

// IngestReport summarizes one AddDocuments call.
type IngestReport struct {
	Chunked      int `json:"chunked"`
	Deduplicated int `json:"deduplicated"`
	Truncated    int `json:"truncated"`
	Indexed      int `json:"indexed"`
}

// Stats is a point-in-time view of store occupancy.
type Stats struct {
	Documents    int `json:"documents"`
	Fingerprints int `json:"fingerprints"`
	MaxDocuments int `json:"max_documents"`
}

// indexMetadata is the sidecar written next to the exported index.
type indexMetadata struct {
	Fingerprints []string `json:"fingerprints"`
	Total        int      `json:"total"`
}

// NewStore builds a store from config.
func NewStore(cfg *config.StoreConfig, idx vector.Index, emb embedder.Embedder, metrics *Metrics) (*Store, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Store{
		index:        idx,
		embedder:     emb,
		chunker:      chunker,
		metrics:      metrics,
		maxDocuments: cfg.MaxDocuments,
		searchLimit:  cfg.SearchLimit,
		fingerprints: make(map[string]struct{}),
	}, nil
}

// AddDocuments chunks, deduplicates, embeds, and indexes a batch.
//
// Deduplication happens before the cap check so duplicates never consume
// capacity. When the surviving chunks exceed remaining capacity the batch
// is truncated in order and the dropped tail is reported, not an error.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) (*IngestReport, error) {
	return s.add(ctx, docs, false)
}

// ForceAddDocuments indexes a batch without consulting or recording
// fingerprints. Callers use it when they already guarantee the batch is
// unique; the capacity cap still applies.
func (s *Store) ForceAddDocuments(ctx context.Context, docs []Document) (*IngestReport, error) {
	return s.add(ctx, docs, true)
}

func (s *Store) add(ctx context.Context, docs []Document, force bool) (*IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.chunker.ChunkAll(docs)
	report := &IngestReport{Chunked: len(chunks)}

	survivors := chunks
	var prints []string
	if !force {
		survivors = make([]DocumentChunk, 0, len(chunks))
		prints = make([]string, 0, len(chunks))
		seen := make(map[string]struct{}, len(chunks))
		for _, chunk := range chunks {
			fp := Fingerprint(chunk.Content)
			if _, dup := s.fingerprints[fp]; dup {
				report.Deduplicated++
				continue
			}
			if _, dup := seen[fp]; dup {
				report.Deduplicated++
				continue
			}
			seen[fp] = struct{}{}
			survivors = append(survivors, chunk)
			prints = append(prints, fp)
		}
		s.metrics.ChunksDeduplicated.Add(float64(report.Deduplicated))
	}

	if remaining := s.maxDocuments - s.index.Count(); len(survivors) > remaining {
		if remaining < 0 {
			remaining = 0
		}
		report.Truncated = len(survivors) - remaining
		survivors = survivors[:remaining]
		if !force {
			prints = prints[:remaining]
		}
		slog.Warn("document cap reached, truncating batch",
			"cap", s.maxDocuments,
			"dropped", report.Truncated)
		s.metrics.ChunksTruncated.Add(float64(report.Truncated))
	}

	if len(survivors) == 0 {
		return report, nil
	}

	texts := make([]string, len(survivors))
	for i, chunk := range survivors {
		texts[i] = chunk.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch: %w", err)
	}

	entries := make([]vector.Entry, len(survivors))
	for i, chunk := range survivors {
		entries[i] = vector.Entry{
			ID:      uuid.NewString(),
			Content: chunk.Content,
			Vector:  vectors[i],
			Metadata: map[string]string{
				"filename": chunk.Filename,
				"page":     chunk.Page,
				"source":   chunk.Source,
			},
		}
	}
	if err := s.index.Add(ctx, entries); err != nil {
		return nil, err
	}

	for _, fp := range prints {
		s.fingerprints[fp] = struct{}{}
	}
	report.Indexed = len(survivors)
	s.metrics.ChunksIndexed.Add(float64(report.Indexed))

	slog.Info("documents indexed",
		"chunked", report.Chunked,
		"deduplicated", report.Deduplicated,
		"truncated", report.Truncated,
		"indexed", report.Indexed,
		"total", s.index.Count())
	return report, nil
}

// Search embeds the query and returns up to limit nearest chunks. A limit
// of zero or less uses the configured default. Searching an empty store
// returns no hits.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	if limit <= 0 {
		limit = s.searchLimit
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.index.Search(ctx, queryVector, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			Content:  r.Content,
			Filename: r.Metadata["filename"],
			Page:     r.Metadata["page"],
			Source:   r.Metadata["source"],
			Score:    r.Score,
		})
	}

	s.metrics.Searches.Inc()
	s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	return hits, nil
}

// Persist writes the index to path and the fingerprint set to the
// `<path>_metadata.json` sidecar.
func (s *Store) Persist(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Export(path); err != nil {
		return &PersistenceError{Op: "saving index", Path: path, Err: err}
	}

	meta := indexMetadata{
		Fingerprints: make([]string, 0, len(s.fingerprints)),
		Total:        s.index.Count(),
	}
	for fp := range s.fingerprints {
		meta.Fingerprints = append(meta.Fingerprints, fp)
	}
	sort.Strings(meta.Fingerprints)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encoding metadata", Path: metadataPath(path), Err: err}
	}
	if err := os.WriteFile(metadataPath(path), data, 0o644); err != nil {
		return &PersistenceError{Op: "saving metadata", Path: metadataPath(path), Err: err}
	}

	slog.Info("index persisted", "path", path, "documents", meta.Total)
	return nil
}

// Load replaces the store contents with a persisted index. A missing
// metadata sidecar is tolerated: the index still loads, dedup state starts
// empty, and a warning is logged.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Import(path); err != nil {
		return &PersistenceError{Op: "loading index", Path: path, Err: err}
	}

	s.fingerprints = make(map[string]struct{})

	data, err := os.ReadFile(metadataPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("index metadata sidecar missing, dedup state reset",
				"path", metadataPath(path))
			return nil
		}
		return &PersistenceError{Op: "loading metadata", Path: metadataPath(path), Err: err}
	}

	var meta indexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return &PersistenceError{Op: "decoding metadata", Path: metadataPath(path), Err: err}
	}
	for _, fp := range meta.Fingerprints {
		s.fingerprints[fp] = struct{}{}
	}

	slog.Info("index loaded",
		"path", path,
		"documents", s.index.Count(),
		"fingerprints", len(s.fingerprints))
	return nil
}

// Reset drops all indexed chunks and dedup state.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	s.fingerprints = make(map[string]struct{})
	slog.Info("index reset")
	return nil
}

// Stats reports current occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Documents:    s.index.Count(),
		Fingerprints: len(s.fingerprints),
		MaxDocuments: s.maxDocuments,
	}
}

func metadataPath(indexPath string) string {
	return indexPath + "_metadata.json"
}
