package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/logger"
)

type Searcher interface {
	Search(ctx context.Context, field, query string, k int) (*executor.SearchResult, error)
	Document(docID uint32) ([]index.StoredField, error)
	Fields() ([]string, error)
}

// CacheAdmin is implemented by *cache.QueryCache.
type CacheAdmin interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) error
}

type Handler struct {
	searcher     Searcher
	cache        CacheAdmin
	defaultField string
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New returns a Handler. queryCache may be nil when caching is disabled.
func New(s Searcher, queryCache CacheAdmin, cfg config.SearchConfig) *Handler {
	return &Handler{
		searcher:     s,
		cache:        queryCache,
		defaultField: cfg.DefaultField,
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the query API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/fields", h.Fields)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		h.writeMessage(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	field := params.Get("field")
	if field == "" {
		field = h.defaultField
	}

	k := h.defaultLimit
	if raw := params.Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeMessage(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}
	if h.maxResults > 0 && k > h.maxResults {
		k = h.maxResults
	}

	result, err := h.searcher.Search(ctx, field, query, k)
	if err != nil {
		log.Warn("search failed", "field", field, "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	log.Info("search completed",
		"field", field,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "document id must be a non-negative integer")
		return
	}
	fields, err := h.searcher.Document(uint32(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": id,
		"fields": fields,
	})
}

func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.searcher.Fields()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeMessage(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeMessage(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// writeError maps err to its HTTP status. Server-side failures are reported
// without detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("request failed", "error", err)
		h.writeMessage(w, status, "internal error")
		return
	}
	h.writeMessage(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
