// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs sync passes repeatedly: once at start, after bursts of
// filesystem activity in the source directory settle, and on an optional
// interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/internal/pipeline"
	"github.com/jkudo/slideview/internal/scan"
	"github.com/jkudo/slideview/pkg/types"
)

// DefaultDebounce is used when Watcher.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Runner executes one sync pass. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (types.PassSummary, error)
}

// Watcher triggers passes from filesystem events and a timer.
type Watcher struct {
	Runner Runner

	// Dir is the source directory to watch.
	Dir        string
	Extensions []string

	// Debounce is the quiet period after the last relevant event.
	Debounce time.Duration

	// Interval triggers a pass periodically. Zero disables the timer.
	Interval time.Duration

	Logger *slog.Logger
}

// Run blocks until ctx is done. Pass errors are logged and do not stop the
// watcher; only a failure to set up the filesystem watch is returned.
func (w *Watcher) Run(ctx context.Context) error {
	logger := logging.OrDiscard(w.Logger)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.Dir, err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var tick <-chan time.Time
	if w.Interval > 0 {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	var settle <-chan time.Time

	logger.Info("watching for changes",
		slog.String("dir", w.Dir),
		slog.Duration("debounce", debounce),
		slog.Duration("interval", w.Interval))
	w.pass(ctx, logger, "start")

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			if !w.relevant(ev) {
				continue
			}
			logger.Debug("source changed", slog.String(logging.KeySource, ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)
			settle = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			logger.Warn("filesystem watcher error", logging.Err(err))

		case <-settle:
			settle = nil
			w.pass(ctx, logger, "change")

		case <-tick:
			w.pass(ctx, logger, "interval")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return scan.Matches(ev.Name, w.Extensions)
}

func (w *Watcher) pass(ctx context.Context, logger *slog.Logger, trigger string) {
	if ctx.Err() != nil {
		return
	}
	summary, err := w.Runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrPassInProgress):
		logger.Info("pass already running, skipped", slog.String("trigger", trigger))
	case err != nil:
		logger.Error("pass failed",
			slog.String("trigger", trigger),
			slog.String(logging.KeyPassID, summary.ID),
			logging.Err(err))
	default:
		logger.Debug("pass finished",
			slog.String("trigger", trigger),
			slog.String(logging.KeyPassID, summary.ID),
			slog.Bool("changed", summary.Changed()))
	}
}
