package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/disclosure-extractor/internal/cache"
	"github.com/spherical/disclosure-extractor/internal/config"
	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/export"
	"github.com/spherical/disclosure-extractor/internal/extract"
	"github.com/spherical/disclosure-extractor/internal/llm"
	"github.com/spherical/disclosure-extractor/internal/observability"
	"github.com/spherical/disclosure-extractor/internal/storage"
)

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "disclosure-extractor",
	})
}

// openCache returns nil when caching is disabled.
func openCache(cfg *config.Config) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemoryClient(cfg.Cache.MaxSize), nil
	case "redis":
		c, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

// openStore returns nil when the database is disabled.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	if cfg.Database.Driver == "none" || cfg.Database.Driver == "" {
		return nil, nil
	}
	return storage.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
}

// pipeline bundles an extraction service with everything it holds open.
type pipeline struct {
	service *extract.Service
	closers []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	if cfg.LLM.APIKey == "" {
		return nil, domain.ConfigError(fmt.Sprintf("no API key for provider %s; set it in .env or the environment", cfg.LLM.Provider), nil)
	}

	p := &pipeline{}

	store, err := openCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if store != nil {
		p.closers = append(p.closers, store.Close)
	}

	svc, closeFn, err := llm.New(ctx, cfg, store, logger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	p.closers = append(p.closers, closeFn)

	p.service = extract.NewService(nil, svc, extract.OptionsFromConfig(cfg), logger)
	return p, nil
}

type documentFlags struct {
	docType string
	company string
	quarter string
}

func readDocument(path string, flags documentFlags) (domain.Document, error) {
	docType, err := domain.ParseDocType(flags.docType)
	if err != nil {
		return domain.Document{}, domain.ValidationError("invalid --type", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, domain.IOError(fmt.Sprintf("read %s", path), err)
	}
	return domain.Document{
		Name:    filepath.Base(path),
		Company: flags.company,
		Quarter: flags.quarter,
		DocType: docType,
		Content: string(raw),
	}, nil
}

// outputPath derives <dir>/<input-name>.<format> from an input file.
func outputPath(dir, input string, format export.Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"."+string(format))
}

func writeRecords(path string, format export.Format, records []domain.ExtractedRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.IOError("create output directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return domain.IOError(fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	w, err := export.NewWriter(format, f)
	if err != nil {
		return err
	}
	if err := w.Write(records); err != nil {
		return err
	}
	return f.Close()
}
