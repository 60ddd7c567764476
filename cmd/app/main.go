package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/menuboard/internal"
	pkgconfig "github.com/starford/menuboard/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg)
}

func importHTML(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ImportHTMLFile(ctx, cfg, cmd.String("html"), cmd.String("css"), cmd.String("base-url"), cmd.String("out"))
}

func render(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RenderFile(ctx, cfg, cmd.String("in"), cmd.String("out"))
}

func main() {
	cmd := &cli.Command{
		Name:   "menuboard",
		Usage:  "Menu board editor service with template storage, HTML import and PNG export",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:   "import-html",
				Usage:  "Convert an HTML page into a template document",
				Action: importHTML,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "html", Usage: "HTML file", Required: true},
					&cli.StringFlag{Name: "css", Usage: "Optional stylesheet"},
					&cli.StringFlag{Name: "base-url", Usage: "Base URL for relative image paths"},
					&cli.StringFlag{Name: "out", Usage: "Output JSON file", Value: "template.json"},
				},
			},
			{
				Name:   "render",
				Usage:  "Render a template document to PNG",
				Action: render,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Template JSON file", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Output PNG file", Value: "board.png"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
