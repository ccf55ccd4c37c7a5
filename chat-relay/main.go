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
	Port        int    `env:"PORT" envDefault:"4040"`
	AdminSecret string `env:"ADMIN_SECRET" envDefault:"change-me"`
}

var rootCmd = &cobra.Command{
	Use:   "vidlink-chat",
	Short: "Room-scoped chat relay with an admin eavesdrop mode",
	RunE:  runChat,
}

var (
	flagPort   int
	flagSecret string
	flagName   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&flagPort, "port", 0, "listen port (overrides PORT)")
	flags.StringVar(&flagSecret, "admin-secret", "", "admin secret (overrides ADMIN_SECRET)")
	flags.StringVar(&flagName, "name", "vidlink chat", "display name on the chat page")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chat command")
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("admin-secret") {
		cfg.AdminSecret = flagSecret
	}

	reg := NewRegistry()
	relay := NewRelay(reg, cfg.AdminSecret)
	srv := NewChatServer(flagName, reg, relay)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Info().Msgf("[chat] serving at http://127.0.0.1:%d", cfg.Port)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[chat] http server error")
		}
	}()

	// Unified shutdown watcher
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("[chat] http server shutdown error")
		}
	}()

	<-ctx.Done()
	srv.Shutdown()
	log.Info().Msg("[chat] shutdown complete")
	return nil
}
