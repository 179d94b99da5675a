package service

import (
	"context"
	"errors"
	"strings"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/indexer"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 100
	maxHitTextLen      = 500
)

func (s *docService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	logger := contextutil.LoggerOr(ctx, s.Logger)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.Invalid("query", "cannot be empty")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, apperrors.Invalid("limit", "must be between 1 and %d, got %d", maxSearchLimit, limit)
	}
	collection := orDefault(req.Collection, s.cfg.Collection)

	vec, err := s.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var results []vectorstore.SearchResult
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		results, err = s.Store.Search(ctx, collection, vec, limit, nil)
		return err
	})
	if err != nil {
		kind := apperrors.ErrIndexFailure
		if errors.Is(err, apperrors.ErrNotFound) {
			kind = apperrors.ErrNotFound
		}
		return nil, apperrors.NewOpError("search", collection, kind, err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			ChunkID:     r.PointID,
			SourcePath:  vectorstore.MetaString(r.Meta, indexer.MetaSourcePath),
			HeadingPath: vectorstore.MetaString(r.Meta, indexer.MetaHeadingPath),
			ChunkIndex:  vectorstore.MetaInt(r.Meta, indexer.MetaChunkIndex),
			Score:       float64(r.Score),
			Text:        truncateText(r.Text, maxHitTextLen),
			Metadata:    r.Meta,
		})
	}

	logger.InfoContext(ctx, "search completed", "collection", collection, "limit", limit, "results", len(hits))
	return &SearchResponse{Query: query, Collection: collection, Results: hits}, nil
}

func truncateText(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
