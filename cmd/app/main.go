package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/souschef/internal"
	pkgconfig "github.com/starford/souschef/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func indexAction(action string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := internal.RunIndex(ctx, action, internal.WithConfig(cfg))
		if err != nil {
			return fmt.Errorf("index %s: %w", action, err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "souschef",
		Usage:  "Voice cooking assistant backend: cookbook search, recipe plans, and guided cooking",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE display stream, and MCP endpoint",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the assistant tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "index",
				Usage: "Maintain the cookbook index",
				Commands: []*cli.Command{
					{Name: internal.IndexBuild, Usage: "Rebuild the index from the documents directory", Action: indexAction(internal.IndexBuild)},
					{Name: internal.IndexClear, Usage: "Drop the index", Action: indexAction(internal.IndexClear)},
					{Name: internal.IndexStatus, Usage: "Show the saved index", Action: indexAction(internal.IndexStatus)},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
