// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/jkudo/slideview/internal/container"
	"github.com/jkudo/slideview/internal/convert"
	"github.com/jkudo/slideview/internal/history"
	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/internal/notify"
	"github.com/jkudo/slideview/internal/pipeline"
	"github.com/jkudo/slideview/internal/secrets"
	"github.com/jkudo/slideview/pkg/types"
)

// app bundles the configuration and the collaborators commands share.
type app struct {
	cfg     types.Config
	fs      afero.Fs
	logger  *slog.Logger
	history *history.Store
}

// newApp loads the configuration and builds the logger.
func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, fs: afero.NewOsFs(), logger: logger}, nil
}

// Close releases the history database if it was opened.
func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

// openHistory opens the pass history database.
func (a *app) openHistory() (*history.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", a.cfg.History.Path, err)
	}
	a.history = store
	return store, nil
}

// converter builds the configured conversion backend.
func (a *app) converter(ctx context.Context) (convert.Converter, error) {
	switch a.cfg.Converter.Backend {
	case types.BackendContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return convert.NewContainerConverter(ctx, rt, a.cfg.Converter.Image)
	default:
		return convert.NewLibreOffice(a.cfg.Converter.Binary), nil
	}
}

// newPipeline builds a sync pipeline. withConverter is false for commands that
// never convert (dry runs, republishing), which then need no converter
// installed.
func (a *app) newPipeline(ctx context.Context, withConverter bool) (*pipeline.Pipeline, error) {
	opts := pipeline.Options{
		Config: a.cfg,
		FS:     a.fs,
		Logger: a.logger,
	}

	if withConverter {
		conv, err := a.converter(ctx)
		if err != nil {
			return nil, err
		}
		opts.Converter = conv

		if a.cfg.History.Enabled {
			store, err := a.openHistory()
			if err != nil {
				return nil, err
			}
			opts.Recorder = store
		}

		if a.cfg.Notify.WebhookURL != "" {
			keys, err := secrets.Load(a.fs, a.cfg.SecretsDir, a.logger)
			if err != nil {
				return nil, err
			}
			opts.Notifier = notify.NewWebhook(a.cfg.Notify, keys[secrets.WebhookToken], a.logger)
		}
	}

	return pipeline.New(opts)
}
