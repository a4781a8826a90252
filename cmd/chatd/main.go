package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmanSingh544/ChatAppResponsive/internal/app"
	"github.com/AmanSingh544/ChatAppResponsive/internal/config"
	"github.com/AmanSingh544/ChatAppResponsive/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:          "chatd",
	Short:        "Room chat server: REST API and WebSocket endpoint",
	SilenceUsage: true,
	RunE:         runServer,
}

var (
	flagConfig   string
	flagPort     int
	flagDataPath string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "optional YAML config file")
	flags.IntVar(&flagPort, "port", 0, "listen port (overrides PORT)")
	flags.StringVar(&flagDataPath, "data", "", "pebble data directory (overrides DATA_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chatd command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.Server.Port = flagPort
	}
	if flagDataPath != "" {
		cfg.Server.DataPath = flagDataPath
	}
	utils.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, cfg)
}
