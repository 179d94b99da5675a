package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"docdrift/internal/contextutil"
	dochttp "docdrift/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(st *state) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			if addr == "" {
				addr = app.Config.HTTPAddr
			}
			router := dochttp.NewRouter(&dochttp.Deps{
				Service:    app.Service,
				Store:      app.Store,
				Collection: app.Config.Collection,
				Metrics:    app.Metrics,
				Logger:     app.Logger,
			})
			return serveHTTP(ctx, addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http_addr from config)")
	return cmd
}

// serveHTTP runs handler on addr until ctx is cancelled, then drains
// in-flight requests.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	logger := contextutil.LoggerFromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.InfoContext(ctx, "shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
