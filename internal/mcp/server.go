// Package mcp exposes the documentation service as Model Context Protocol
// tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"docdrift/internal/service"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingService is returned by NewServer without a DocService.
var ErrMissingService = errors.New("mcp: document service is required")

// Server is the MCP server for docdrift.
type Server struct {
	svc    service.DocService
	logger *slog.Logger
	server *mcp.Server
}

// NewServer creates an MCP server with all documentation tools registered.
func NewServer(svc service.DocService, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, ErrMissingService
	}
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "docdrift",
		Version: Version,
	}

	s := &Server{
		svc:    svc,
		logger: logger.With("component", "mcp"),
		server: mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.InfoContext(ctx, "mcp server listening", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
