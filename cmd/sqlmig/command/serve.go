package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/momeni/sqlmig/pkg/adapter/config/cfg1"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/routes"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the migration reports over HTTP",
	Long: `Serve the info and validate reports as a read-only RESTful
API. Migrations are not applied by the server, so it may run next to
the database while another instance runs the migrate command.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

var serveListen string

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	e, err := setup(ctx, func(c *cfg1.Config) error {
		if flags.Changed("listen") {
			c.Server.Listen = serveListen
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.Close()
	s := e.cfg.Server
	engine := s.NewEngine(slog.Default())
	routes.Register(engine, e.uc)
	srv := &http.Server{
		Addr:              s.Listen,
		Handler:           engine,
		ReadHeaderTimeout: s.ReadHeaderTimeout.Std(10 * time.Second),
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("serving migration reports", slog.String("listen", s.Listen))
	select {
	case err = <-errCh:
		return fmt.Errorf("listening on %q: %w", s.Listen, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), 5*time.Second,
	)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down the server: %w", err)
	}
	if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(
		&serveListen, "listen", "", "listen address, like 127.0.0.1:8080",
	)
	rootCmd.AddCommand(serveCmd)
}
