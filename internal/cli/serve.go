package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/internal/server"
	"github.com/sanonone/wikihop/pkg/metrics"
	"github.com/sanonone/wikihop/pkg/render"
)

func (a *app) serveCommand() *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve path searches over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("auth-token") {
				a.cfg.Server.AuthToken = token
			}
			return a.runServe(cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&token, "auth-token", "", "bearer token required on /v1 routes")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if sized, ok := store.(interface{ Len() int }); ok {
		metrics.TableTitles.WithLabelValues(a.cfg.Store.Backend).Set(float64(sized.Len()))
	}

	engine, err := a.newEngine(store, metrics.SearchOptions()...)
	if err != nil {
		return err
	}
	if a.cfg.Server.AuthToken == "" {
		a.logger.Warn("serving without authentication")
	}

	srv, err := server.NewServer(engine, a.cfg.Server.Addr, a.cfg.Server.AuthToken, render.New(a.cfg.Render.BaseURL, false))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	srv.Shutdown(a.cfg.Server.ShutdownTimeout)
	if err := <-errCh; err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	return nil
}
