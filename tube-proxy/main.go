package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type config struct {
	Port       int    `env:"PORT" envDefault:"3000"`
	BackendURL string `env:"BACKEND_URL" envDefault:"https://inv.nadeko.net"`
	CachePath  string `env:"CACHE_PATH"`
}

var rootCmd = &cobra.Command{
	Use:   "vidlink-proxy",
	Short: "Thin proxy for video search, stream URLs and thumbnails",
	RunE:  runProxy,
}

var (
	flagPort      int
	flagBackend   string
	flagCachePath string
	flagName      string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&flagPort, "port", 0, "listen port (overrides PORT)")
	flags.StringVar(&flagBackend, "backend-url", "", "metadata backend base URL (overrides BACKEND_URL)")
	flags.StringVar(&flagCachePath, "cache-path", "", "optional directory for the PebbleDB response cache (overrides CACHE_PATH)")
	flags.StringVar(&flagName, "name", "vidlink", "display name on the player page")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute proxy command")
	}
}

func runProxy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = flagBackend
	}
	if cmd.Flags().Changed("cache-path") {
		cfg.CachePath = flagCachePath
	}

	backend, err := NewBackend(cfg.BackendURL)
	if err != nil {
		// Keep serving; /api/health reports backendReady=false and the API
		// answers 503 until a restart fixes the configuration.
		log.Error().Err(err).Str("url", cfg.BackendURL).Msg("[proxy] backend init failed")
	}

	cache, err := openResponseCache(cfg.CachePath)
	if err != nil {
		log.Warn().Err(err).Msg("[proxy] open cache failed; running without cache")
		cache = nil
	} else if cache != nil {
		log.Info().Msgf("[proxy] response cache at %s", cfg.CachePath)
	}

	srv := NewAPIServer(flagName, backend, cache)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Info().Msgf("[proxy] serving at http://127.0.0.1:%d (backend %s)", cfg.Port, cfg.BackendURL)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[proxy] http server error")
		}
	}()

	// Unified shutdown watcher
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("[proxy] http server shutdown error")
		}
	}()

	<-ctx.Done()
	if err := cache.Close(); err != nil {
		log.Warn().Err(err).Msg("[proxy] cache close error")
	}
	log.Info().Msg("[proxy] shutdown complete")
	return nil
}
