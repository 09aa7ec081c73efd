package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/qgl-content/pkg/qcproj/api"
	"github.com/tendant/qgl-content/pkg/qcproj/config"
)

type Config struct {
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:"1" env-description:"SHA-256 of the accepted API key"`
	EnvFile      string `env:"ENV_FILE" env-default:".env" env-description:"dotenv file loaded before reading the environment"`
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
	flag.PrintDefaults()
	for _, cfg := range []interface{}{&Config{}, &config.EnvConfig{}} {
		help, err := cleanenv.GetDescription(cfg, nil)
		if err == nil {
			fmt.Fprintln(flag.CommandLine.Output(), help)
		}
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	var cmdConfig Config
	if err := cleanenv.ReadEnv(&cmdConfig); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	if err := godotenv.Load(cmdConfig.EnvFile); err != nil {
		slog.Info("No .env file found or error loading it, using environment only", "file", cmdConfig.EnvFile, "err", err)
	} else if err := cleanenv.ReadEnv(&cmdConfig); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load service configuration", "err", err)
		os.Exit(1)
	}

	if cfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(cfg.DatabaseURL); err != nil {
			slog.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
	}

	svc, err := cfg.BuildService()
	if err != nil {
		slog.Error("Failed to create service", "err", err)
		os.Exit(1)
	}
	slog.Info("Service ready",
		"environment", cfg.Environment, "storage", cfg.Storage.Type, "database", cfg.DatabaseType)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"key1": cmdConfig.ApiKeySHA256,
		},
	})
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	projectHandler := api.NewProjectHandler(svc)

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/", projectHandler.Routes())
		})
	})

	server.Run()
}
