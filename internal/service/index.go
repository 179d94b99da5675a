package service

import (
	"context"
	"fmt"
	"strings"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/indexer"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

func (s *docService) Index(ctx context.Context, req IndexRequest) (*indexer.IndexReport, error) {
	if strings.TrimSpace(req.Folder) == "" {
		return nil, apperrors.Invalid("folder", "is required")
	}
	collection := orDefault(req.Collection, s.cfg.Collection)

	report, err := s.Indexer.IndexFolder(ctx, req.Folder, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", req.Folder, err)
	}
	return report, nil
}

func (s *docService) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	var infos []vectorstore.CollectionInfo
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		infos, err = s.Store.ListCollections(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.NewOpError("list_collections", "", apperrors.ErrIndexFailure, err)
	}
	if infos == nil {
		infos = []vectorstore.CollectionInfo{}
	}
	return infos, nil
}

func (s *docService) DeleteCollection(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.Invalid("collection", "is required")
	}

	exists, err := s.Store.CollectionExists(ctx, name)
	if err != nil {
		return apperrors.NewOpError("delete_collection", name, apperrors.ErrIndexFailure, err)
	}
	if !exists {
		return apperrors.NewOpError("delete_collection", name, apperrors.ErrNotFound, nil)
	}
	if err := s.Store.DeleteCollection(ctx, name); err != nil {
		return apperrors.NewOpError("delete_collection", name, apperrors.ErrIndexFailure, err)
	}

	contextutil.LoggerOr(ctx, s.Logger).InfoContext(ctx, "deleted collection", "collection", name)
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
