package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pvplan/pvplan/internal/api"
	"github.com/pvplan/pvplan/internal/app/license"
	"github.com/pvplan/pvplan/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Listen host (overrides [api].host)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides [api].port)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API on [api].host:[api].port. When [license].enabled is set,
plan endpoints require a valid code in the X-License-Code header.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	apiCfg := cfg.API
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		apiCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		apiCfg.Port = port
	}

	srv := api.NewServer(cfg.Simulation.MaxDepth, apiCfg.Timeout())
	srv.SetRateLimit(apiCfg.RateLimitRPS, apiCfg.RateLimitBurst)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	if cfg.License.Enabled {
		db, err := sqlite.Open(cfg.LicenseDBPath())
		if err != nil {
			return fmt.Errorf("open license registry: %w", err)
		}
		defer db.Close()
		svc := license.NewService(db).WithCache(cfg.License.CacheSize, cfg.License.CacheDuration())
		srv.SetLicenses(svc, true)
		log.Printf("[api] license registry %s", db.Path())
	}

	httpSrv := &http.Server{
		Addr:              apiCfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on %s", httpSrv.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[api] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
