package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/api/handlers"
	"github.com/civicpulse/complaints-api/api/scheduler"
	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := handlers.App{}
	a.Config = *config.New()
	if err := a.Config.Validate(); err != nil {
		return err
	}

	// initialize database, change feed and router
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	s := scheduler.NewScheduler(
		databases.NewUserDatabase(a.Database()),
		auth.NewAllowList(a.Config.AuthorityUsernames),
		a.Config.AuthorityDefaultPassword,
		a.Config.AuthorityRegion,
	)
	s.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	zap.S().Infow("complaints-api is up and running",
		"port", a.Config.Port,
		"url", a.Config.BaseURL,
	)

	var err error
	select {
	case err = <-errs:
	case <-ctx.Done():
		zap.S().Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		zap.S().Errorw("failed to shut down http server", "error", shutdownErr)
	}
	s.Stop()
	a.Close(shutdownCtx)

	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
