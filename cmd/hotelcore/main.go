// Command hotelcore runs the hotel realtime core: pricing, availability,
// cache, hub, loyalty, and the background workers. Ops subcommands run
// one-shot maintenance against the same wiring.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/app"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "hotelcore",
		Short:         "Hotel realtime pricing, availability, and loyalty core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults apply when empty)")

	root.AddCommand(serveCmd())
	root.AddCommand(cacheCmd())
	root.AddCommand(pricingCmd())
	root.AddCommand(loyaltyCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging() {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// buildApp loads configuration and wires the system.
func buildApp(ctx context.Context) (*app.App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, env, cfg)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the realtime core",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}
