package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/tabfind/internal/model"
	"github.com/ppiankov/tabfind/internal/pipeline"
)

// app bundles what every data command needs
type app struct {
	cfg      *model.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
}

func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	p, err := pipeline.NewPipelineFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, pipeline: p}, nil
}

func (a *app) close() {
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("closing cache failed", "error", err)
	}
}

// load brings the data set up, preferring the cache, and reports how
func (a *app) load(ctx context.Context, force bool) (*model.LoadResult, error) {
	var (
		res *model.LoadResult
		err error
	)
	if force {
		res, err = a.pipeline.Refresh(ctx)
	} else {
		res, err = a.pipeline.Load(ctx)
	}
	if err != nil {
		return nil, explain(err)
	}
	if res.Warning != "" {
		a.logger.Warn("using fallback data", "origin", res.Origin, "updated_at", res.UpdatedAt, "reason", res.Warning)
	}
	return res, nil
}

// explain turns sentinel errors into actionable messages
func explain(err error) error {
	switch {
	case errors.Is(err, model.ErrNoSource):
		return fmt.Errorf("%w: set source.url in the config file, TABFIND_SOURCE_URL, or pass --source", err)
	case errors.Is(err, model.ErrTransport):
		return fmt.Errorf("%w (no cached copy available)", err)
	case errors.Is(err, model.ErrEmptyDocument), errors.Is(err, model.ErrMissingHeaders):
		return fmt.Errorf("source has no data: %w", err)
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describeLoad(res *model.LoadResult) string {
	age := time.Since(res.UpdatedAt).Round(time.Second)
	s := fmt.Sprintf("%d records from %s, updated %s ago", res.Records, res.Origin, age)
	if res.Stale {
		s += " (stale)"
	}
	return s
}
