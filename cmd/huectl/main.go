package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huectl/internal/cli"
	"github.com/dokzlo13/huectl/internal/config"
)

func main() {
	// .env is optional, flags and the config file cover everything
	_ = godotenv.Load()

	var root cli.CLI
	kctx := kong.Parse(&root,
		kong.Name("huectl"),
		kong.Description("Control Philips Hue bridges: pairing, state commands, Lua scripts and an MQTT daemon."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		log.Fatal().Err(err).Str("config", root.Config).Msg("Failed to load configuration")
	}

	// Global flags override the file
	if root.Host != "" {
		cfg.Bridge.Host = root.Host
	}
	if root.Username != "" {
		cfg.Bridge.Username = root.Username
	}
	if root.Verbose {
		cfg.Log.Level = "debug"
	}

	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	err = kctx.Run(&cli.Context{Config: cfg, Globals: &root})
	kctx.FatalIfErrorf(err)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
