package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/codec"
	"github.com/starford/menuboard/internal/export"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/mcpserver"
	"github.com/starford/menuboard/internal/storage"
	"github.com/starford/menuboard/internal/templateservice"
)

// RunMCP serves the MCP tools over stdio. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)

	store, db, err := library(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := mcpserver.New(
		templateservice.NewService(store, db, nil),
		assets.NewService(store, db, assets.NewFetcher(cfg.Import.ProbeTimeout), nil),
		newImporter(cfg, logger),
	)
	logger.Info("MCP server starting", slog.String("library_path", cfg.Library.Path))
	return srv.ServeStdio()
}

// ImportHTMLFile converts an HTML file (plus an optional stylesheet) into a
// template document written to outPath.
func ImportHTMLFile(ctx context.Context, cfg *Config, htmlPath, cssPath, baseURL, outPath string) error {
	logger := newLogger(cfg, os.Stderr)

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return fmt.Errorf("read html: %w", err)
	}
	var css []byte
	if cssPath != "" {
		if css, err = os.ReadFile(cssPath); err != nil {
			return fmt.Errorf("read css: %w", err)
		}
	}

	doc, err := newImporter(cfg, logger).Convert(ctx, htmlimport.Source{HTML: string(html), CSS: string(css), BaseURL: baseURL})
	if err != nil {
		return err
	}
	data, err := codec.Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info("imported", slog.String("out", outPath), slog.Int("elements", len(doc.Elements)))
	return nil
}

// RenderFile rasterizes a template document file to a PNG at its native size.
// /assets/ image URLs resolve against the configured library.
func RenderFile(ctx context.Context, cfg *Config, inPath, outPath string) error {
	logger := newLogger(cfg, os.Stderr)

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}
	doc, err := codec.Decode(data)
	if err != nil {
		return err
	}

	var src export.AssetSource
	if store, err := storage.NewFS(cfg.Library.Path); err == nil {
		src = assets.NewService(store, nil, nil, nil)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	r := export.NewRasterizer(export.NewLoader(cfg.Export.ImageTimeout, src), logger)
	if err := r.PNG(ctx, doc, f); err != nil {
		return err
	}
	logger.Info("rendered", slog.String("out", outPath))
	return f.Close()
}
