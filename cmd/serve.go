package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/ingest"
	"github.com/agentic-research/shape/internal/server"
	"github.com/agentic-research/shape/internal/structure"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		listen string
		mcp    bool
	)
	c := &cobra.Command{
		Use:   "serve [source...]",
		Short: "Serve the structure tree over HTTP or MCP",
		Long: `Serve seeds the tree from --snapshot and the given sources, then keeps
it open for more documents. By default the HTTP API is served on the
configured listen address; --mcp serves MCP tools on stdin/stdout instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			metrics, err := analyzer.NewMetrics(reg)
			if err != nil {
				return err
			}
			tree, err := a.newTree(structure.WithUpgradeHook(metrics.UpgradeHook()))
			if err != nil {
				return err
			}
			an, _, err := a.run(ctx, tree, args, analyzer.WithMetrics(metrics))
			if err != nil {
				return err
			}

			var sel *ingest.Selector
			if a.cfg.Selector != "" {
				if sel, err = ingest.NewSelector(a.cfg.Selector); err != nil {
					return err
				}
			}
			svc := server.NewService(an,
				server.WithLogger(a.log),
				server.WithSelector(sel),
				server.WithGatherer(reg),
			)

			if mcp {
				a.log.Info("serving MCP on stdio")
				return svc.ServeStdio(ctx, os.Stdin, os.Stdout)
			}
			if !cmd.Flags().Changed("listen") {
				listen = a.cfg.Server.Listen
			}
			return serveHTTP(ctx, a, listen, svc.Handler())
		},
	}
	c.Flags().StringVarP(&listen, "listen", "l", "", "HTTP listen address (default from config server.listen)")
	c.Flags().BoolVar(&mcp, "mcp", false, "Serve MCP tools on stdin/stdout")
	return c
}

func serveHTTP(ctx context.Context, a *app, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
