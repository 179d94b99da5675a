package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
)

// IndexInput is the input schema for index_documentation.
type IndexInput struct {
	Folder     string `json:"folder" jsonschema:"folder containing documentation files"`
	Collection string `json:"collection,omitempty" jsonschema:"target collection (default from config)"`
}

// IndexOutput summarizes an indexing run.
type IndexOutput struct {
	Collection         string   `json:"collection"`
	DocumentsProcessed int      `json:"documents_processed"`
	ChunksWritten      int      `json:"chunks_written"`
	Errors             []string `json:"errors"`
	IndexVersion       string   `json:"index_version"`
	DurationMs         int64    `json:"duration_ms"`
}

// CheckInput is the input schema for check_docs.
type CheckInput struct {
	RepoPath    string `json:"repo_path" jsonschema:"path to a local git repository"`
	CommitRange string `json:"commit_range,omitempty" jsonschema:"commit range such as v1.0..HEAD"`
	SinceDays   int    `json:"since_days,omitempty" jsonschema:"look back this many days instead of a range"`
	Collection  string `json:"collection,omitempty" jsonschema:"documentation collection to match against"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"documentation matches per change (1-100)"`
}

// CheckOutput is the outcome of a documentation check.
type CheckOutput struct {
	Summary      string           `json:"summary"`
	Range        string           `json:"range"`
	Signals      int              `json:"signals"`
	Results      []ResultOutput   `json:"results"`
	AffectedDocs []AffectedOutput `json:"affected_docs"`
	Gaps         []GapOutput      `json:"gaps"`
}

// ResultOutput is one change and its best documentation match.
type ResultOutput struct {
	FilePath       string  `json:"file_path"`
	Category       string  `json:"category"`
	Significance   float64 `json:"significance"`
	Outcome        string  `json:"outcome"`
	Recommendation string  `json:"recommendation"`
	BestMatch      string  `json:"best_match,omitempty"`
	Similarity     float64 `json:"similarity,omitempty"`
	Stale          bool    `json:"stale"`
}

// AffectedOutput is a documentation file touched by one or more changes.
type AffectedOutput struct {
	Path    string   `json:"path"`
	Stale   bool     `json:"stale"`
	Changes []string `json:"changes"`
	Score   float64  `json:"score"`
}

// GapOutput is a change with no matching documentation.
type GapOutput struct {
	Path         string  `json:"path"`
	Category     string  `json:"category"`
	Significance float64 `json:"significance"`
	Summary      string  `json:"summary"`
}

// SearchInput is the input schema for search_documentation.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query"`
	Collection string `json:"collection,omitempty" jsonschema:"collection to search (default from config)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 5)"`
}

// SearchOutput is the output schema for search_documentation.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput is a single search hit.
type SearchResultOutput struct {
	SourcePath  string  `json:"source_path"`
	HeadingPath string  `json:"heading_path,omitempty"`
	ChunkIndex  int     `json:"chunk_index"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
}

// ListCollectionsInput takes no arguments.
type ListCollectionsInput struct{}

// ListCollectionsOutput lists the collections in the vector index.
type ListCollectionsOutput struct {
	Collections []CollectionOutput `json:"collections"`
}

// CollectionOutput describes one collection.
type CollectionOutput struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	PointsCount int    `json:"points_count"`
}

// DeleteCollectionInput is the input schema for delete_collection.
type DeleteCollectionInput struct {
	Name string `json:"name" jsonschema:"collection to delete"`
}

// DeleteCollectionOutput confirms a deletion.
type DeleteCollectionOutput struct {
	Deleted string `json:"deleted"`
}

// ChangesInput is the input schema for index_git_diff.
type ChangesInput struct {
	RepoPath    string `json:"repo_path" jsonschema:"path to a local git repository"`
	CommitRange string `json:"commit_range,omitempty" jsonschema:"commit range such as v1.0..HEAD"`
	SinceDays   int    `json:"since_days,omitempty" jsonschema:"look back this many days instead of a range"`
	Collection  string `json:"collection,omitempty" jsonschema:"collection for change records (default from config)"`
}

// ChangesOutput summarizes an index_git_diff run.
type ChangesOutput struct {
	Collection   string `json:"collection"`
	Range        string `json:"range"`
	HunksScanned int    `json:"hunks_scanned"`
	Indexed      int    `json:"indexed"`
	Summary      string `json:"summary"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_documentation",
		Description: "Chunk, embed and index a folder of documentation files",
	}, s.handleIndex)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_docs",
		Description: "Find documentation likely affected by recent code changes in a git repository",
	}, s.handleCheck)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documentation",
		Description: "Semantic search over indexed documentation",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_collections",
		Description: "List collections in the vector index",
	}, s.handleListCollections)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete a collection and all of its indexed chunks",
	}, s.handleDeleteCollection)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_git_diff",
		Description: "Index significant code changes from a git repository so they can be searched",
	}, s.handleIndexChanges)
}

// withLogger attaches the server logger so service code logs under it.
func (s *Server) withLogger(ctx context.Context, tool string) context.Context {
	return contextutil.WithLogger(ctx, s.logger.With("tool", tool))
}

// toolError logs err and returns it; the SDK reports it as an IsError result.
func (s *Server) toolError(ctx context.Context, tool string, err error) error {
	s.logger.WarnContext(ctx, "tool call failed", "tool", tool, "error", err)
	return err
}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (*mcp.CallToolResult, IndexOutput, error) {
	ctx = s.withLogger(ctx, "index_documentation")
	report, err := s.svc.Index(ctx, service.IndexRequest{Folder: input.Folder, Collection: input.Collection})
	if err != nil {
		return nil, IndexOutput{}, s.toolError(ctx, "index_documentation", err)
	}

	out := IndexOutput{
		Collection:         report.Collection,
		DocumentsProcessed: report.DocumentsProcessed,
		ChunksWritten:      report.ChunksWritten,
		Errors:             make([]string, 0, len(report.Errors)),
		IndexVersion:       report.IndexVersion,
		DurationMs:         report.Duration.Milliseconds(),
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, e.Path+": "+e.Message)
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, _ *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	ctx = s.withLogger(ctx, "check_docs")
	report, err := s.svc.Check(ctx, service.CheckRequest{
		RepoPath:    input.RepoPath,
		CommitRange: input.CommitRange,
		SinceDays:   input.SinceDays,
		Collection:  input.Collection,
		TopK:        input.TopK,
	})
	if err != nil {
		return nil, CheckOutput{}, s.toolError(ctx, "check_docs", err)
	}

	out := CheckOutput{
		Summary:      report.Summary,
		Range:        report.Range,
		Signals:      report.Signals,
		Results:      make([]ResultOutput, 0, len(report.Results)),
		AffectedDocs: make([]AffectedOutput, 0, len(report.AffectedDocs)),
		Gaps:         make([]GapOutput, 0, len(report.Gaps)),
	}
	for i := range report.Results {
		r := &report.Results[i]
		ro := ResultOutput{
			FilePath:       r.Signal.FilePath(),
			Category:       string(r.Signal.Category),
			Significance:   r.Signal.Significance,
			Outcome:        r.Outcome(),
			Recommendation: r.Recommendation,
		}
		if m := r.BestMatch(); m != nil {
			ro.BestMatch = m.SourcePath
			ro.Similarity = m.Similarity
			ro.Stale = m.IsStale
		}
		out.Results = append(out.Results, ro)
	}
	for _, d := range report.AffectedDocs {
		out.AffectedDocs = append(out.AffectedDocs, AffectedOutput{
			Path:    d.Path,
			Stale:   d.Stale,
			Changes: d.Changes,
			Score:   d.Score,
		})
	}
	for _, g := range report.Gaps {
		out.Gaps = append(out.Gaps, GapOutput{
			Path:         g.Path,
			Category:     string(g.Category),
			Significance: g.Significance,
			Summary:      g.Summary,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	ctx = s.withLogger(ctx, "search_documentation")
	resp, err := s.svc.Search(ctx, service.SearchRequest{
		Query:      input.Query,
		Collection: input.Collection,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, SearchOutput{}, s.toolError(ctx, "search_documentation", err)
	}

	out := SearchOutput{
		Results: make([]SearchResultOutput, len(resp.Results)),
		Count:   len(resp.Results),
	}
	for i, hit := range resp.Results {
		out.Results[i] = SearchResultOutput{
			SourcePath:  hit.SourcePath,
			HeadingPath: hit.HeadingPath,
			ChunkIndex:  hit.ChunkIndex,
			Score:       hit.Score,
			Text:        hit.Text,
		}
	}
	return nil, out, nil
}

func (s *Server) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ ListCollectionsInput) (*mcp.CallToolResult, ListCollectionsOutput, error) {
	ctx = s.withLogger(ctx, "list_collections")
	infos, err := s.svc.ListCollections(ctx)
	if err != nil {
		return nil, ListCollectionsOutput{}, s.toolError(ctx, "list_collections", err)
	}

	out := ListCollectionsOutput{Collections: make([]CollectionOutput, len(infos))}
	for i, info := range infos {
		out.Collections[i] = CollectionOutput{
			Name:        info.Name,
			VectorSize:  info.VectorSize,
			PointsCount: info.PointsCount,
		}
	}
	return nil, out, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, _ *mcp.CallToolRequest, input DeleteCollectionInput) (*mcp.CallToolResult, DeleteCollectionOutput, error) {
	ctx = s.withLogger(ctx, "delete_collection")
	if err := s.svc.DeleteCollection(ctx, input.Name); err != nil {
		return nil, DeleteCollectionOutput{}, s.toolError(ctx, "delete_collection", err)
	}
	return nil, DeleteCollectionOutput{Deleted: input.Name}, nil
}

func (s *Server) handleIndexChanges(ctx context.Context, _ *mcp.CallToolRequest, input ChangesInput) (*mcp.CallToolResult, ChangesOutput, error) {
	ctx = s.withLogger(ctx, "index_git_diff")
	report, err := s.svc.IndexChanges(ctx, service.ChangesRequest{
		RepoPath:    input.RepoPath,
		CommitRange: input.CommitRange,
		SinceDays:   input.SinceDays,
		Collection:  input.Collection,
	})
	if err != nil {
		return nil, ChangesOutput{}, s.toolError(ctx, "index_git_diff", err)
	}
	return nil, ChangesOutput{
		Collection:   report.Collection,
		Range:        report.Range,
		HunksScanned: report.HunksScanned,
		Indexed:      report.Indexed,
		Summary:      report.Summary,
	}, nil
}
