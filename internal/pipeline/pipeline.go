// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs incremental sync passes: it keeps the artifact
// directory and the manifest consistent with the source directory and
// republishes the index.
//
// A pass moves through loading, reaping, diffing, converting, persisting,
// and publishing. Only loading can fail the pass outright; per-file
// conversion errors are recorded and retried on the next pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jkudo/slideview/internal/convert"
	"github.com/jkudo/slideview/internal/diff"
	"github.com/jkudo/slideview/internal/fsutil"
	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/internal/manifest"
	"github.com/jkudo/slideview/internal/publish"
	"github.com/jkudo/slideview/internal/reap"
	"github.com/jkudo/slideview/internal/scan"
	"github.com/jkudo/slideview/pkg/types"
)

var (
	// ErrFatalIO wraps the load failures that abort a pass: an unreadable
	// manifest or source directory. Nothing is written when it occurs.
	ErrFatalIO = errors.New("fatal I/O error")

	// ErrPassInProgress is returned when another pass holds the lock.
	ErrPassInProgress = errors.New("another pass is in progress")
)

// Recorder stores finished pass summaries.
type Recorder interface {
	Record(ctx context.Context, summary types.PassSummary) error
}

// Notifier announces finished passes.
type Notifier interface {
	Notify(ctx context.Context, summary types.PassSummary) error
}

// Options configures a Pipeline.
type Options struct {
	Config types.Config

	// FS holds sources, artifacts, the manifest, and the index. Nil means
	// the OS filesystem. The pass lock always lives on the OS filesystem.
	FS afero.Fs

	// Converter produces artifacts. Required by Run, not by Preview.
	Converter convert.Converter

	Logger *slog.Logger

	// Recorder and Notifier are optional.
	Recorder Recorder
	Notifier Notifier

	// Now and NewID default to time.Now and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Pipeline runs sync passes over one source directory.
type Pipeline struct {
	cfg       types.Config
	fs        afero.Fs
	converter convert.Converter
	logger    *slog.Logger
	recorder  Recorder
	notifier  Notifier
	now       func() time.Time
	newID     func() string

	store     *manifest.Store
	reaper    *reap.Reaper
	publisher *publish.Publisher
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{
		cfg:       opts.Config,
		fs:        opts.FS,
		converter: opts.Converter,
		logger:    logging.OrDiscard(opts.Logger),
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}

	p.store = manifest.NewStore(p.fs, p.cfg.ManifestPath, p.logger)
	p.reaper = &reap.Reaper{FS: p.fs, ArtifactDir: p.cfg.ArtifactDir, Logger: p.logger}
	p.publisher = publish.NewPublisher(p.fs, p.cfg)
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() types.Config { return p.cfg }

// Manifest loads the persisted manifest without taking the pass lock.
func (p *Pipeline) Manifest() (types.Manifest, error) {
	m, err := p.store.Load()
	if err != nil {
		return types.Manifest{}, fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	return m, nil
}

// ArtifactPath returns the artifact location for a source name.
func (p *Pipeline) ArtifactPath(name string) string {
	return filepath.Join(p.cfg.ArtifactDir, types.ArtifactName(name))
}

// Publish regenerates the index from the persisted manifest alone.
func (p *Pipeline) Publish() error {
	m, err := p.Manifest()
	if err != nil {
		return err
	}
	return p.publisher.Publish(m)
}

// Preview is what a pass would do, computed without side effects.
type Preview struct {
	Plan diff.Plan

	// Repairs lists unchanged sources whose artifact is missing.
	Repairs []diff.Entry
}

// Preview loads and classifies like Run but converts, deletes, and writes
// nothing. It does not take the pass lock.
func (p *Pipeline) Preview(ctx context.Context) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	m, snap, err := p.load()
	if err != nil {
		return Preview{}, err
	}
	plan := diff.Classify(snap, m)
	return Preview{Plan: plan, Repairs: p.missingArtifacts(plan.Unchanged)}, nil
}

func (p *Pipeline) load() (types.Manifest, types.Snapshot, error) {
	m, err := p.store.Load()
	if err != nil {
		return types.Manifest{}, types.Snapshot{}, fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	snap, err := scan.Scan(p.fs, p.cfg.SourceDir, p.cfg.NormalizedExtensions())
	if err != nil {
		return types.Manifest{}, types.Snapshot{}, fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	return m, snap, nil
}

func (p *Pipeline) missingArtifacts(entries []diff.Entry) []diff.Entry {
	var missing []diff.Entry
	for _, e := range entries {
		if !fsutil.Exists(p.fs, p.ArtifactPath(e.Name)) {
			missing = append(missing, e)
		}
	}
	return missing
}

func (p *Pipeline) lock() (*flock.Flock, error) {
	path := p.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating lock directory: %w", ErrFatalIO, err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring lock %s: %w", ErrFatalIO, path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrPassInProgress, path)
	}
	return lock, nil
}

// Run executes one pass. The returned summary is filled in even when an
// error is returned; its State names the state the pass stopped in.
func (p *Pipeline) Run(ctx context.Context) (types.PassSummary, error) {
	if p.converter == nil {
		return types.PassSummary{}, errors.New("pipeline has no converter")
	}

	ps := &pass{
		Pipeline: p,
		summary:  types.PassSummary{ID: p.newID(), StartedAt: p.now()},
	}
	ps.log = p.logger.With(slog.String(logging.KeyPassID, ps.summary.ID))

	ps.enter(types.StateLoading)
	lock, err := p.lock()
	if err != nil {
		if errors.Is(err, ErrPassInProgress) {
			ps.log.Info("skipping pass", logging.Err(err))
			ps.summary.State = types.StateFailed
			ps.summary.Error = err.Error()
			return ps.summary, err
		}
		return ps.fail(ctx, err)
	}
	defer lock.Unlock()

	err = ps.run(ctx)
	return ps.finish(ctx, err)
}

// pass carries the state of one Run.
type pass struct {
	*Pipeline
	log      *slog.Logger
	summary  types.PassSummary
	manifest types.Manifest
}

func (ps *pass) enter(state types.PassState) {
	ps.summary.State = state
	ps.log.Debug("entering state", slog.String(logging.KeyState, string(state)))
}

func (ps *pass) event(source string, action types.Action, err error) {
	ev := types.SourceEvent{Source: source, Action: action}
	if err != nil {
		ev.Error = err.Error()
	}
	ps.summary.Events = append(ps.summary.Events, ev)
}

func (ps *pass) run(ctx context.Context) error {
	m, snap, err := ps.load()
	if err != nil {
		ps.summary.State = types.StateFailed
		return err
	}
	ps.log.Info("pass started",
		slog.String("manifest", ps.store.Path()),
		slog.Int("sources", snap.Len()),
		slog.Int("tracked", m.Len()))

	ps.enter(types.StateReaping)
	initial := diff.Classify(snap, m)
	for _, orphan := range initial.Orphaned {
		ps.log.Info("classified", slog.String(logging.KeySource, orphan.Name), slog.String("class", string(diff.ClassOrphaned)))
	}
	m, reaped := ps.reaper.Reap(initial.Orphaned, m)
	for _, name := range reaped.Removed {
		ps.event(name, types.ActionOrphaned, nil)
	}
	ps.summary.Orphaned = len(reaped.Removed)
	if ps.cfg.SweepStrays {
		keep := append(snap.Names(), m.Names()...)
		ps.reaper.Sweep(keep)
	}

	ps.enter(types.StateDiffing)
	plan := diff.Classify(snap, m)
	for _, e := range plan.New {
		ps.log.Info("classified", slog.String(logging.KeySource, e.Name), slog.String("class", string(diff.ClassNew)))
	}
	for _, e := range plan.Updated {
		ps.log.Info("classified", slog.String(logging.KeySource, e.Name), slog.String("class", string(diff.ClassUpdated)),
			slog.String("recorded", types.FormatTimestamp(e.Previous.LastModified)),
			slog.String("observed", types.FormatTimestamp(e.ModTime)))
	}
	for _, e := range plan.Unchanged {
		ps.log.Debug("classified", slog.String(logging.KeySource, e.Name), slog.String("class", string(diff.ClassUnchanged)))
	}
	repairs := ps.missingArtifacts(plan.Unchanged)
	for _, e := range repairs {
		ps.log.Info("artifact missing, scheduling repair", slog.String(logging.KeySource, e.Name))
	}
	ps.summary.Unchanged = len(plan.Unchanged) - len(repairs)

	ps.enter(types.StateConverting)
	m = ps.convert(ctx, plan, repairs, m)

	ps.enter(types.StatePersisting)
	if err := ps.store.Save(m); err != nil {
		return err
	}
	ps.manifest = m

	ps.enter(types.StatePublishing)
	if err := ps.publisher.Publish(m); err != nil {
		return err
	}

	ps.enter(types.StateDone)
	return nil
}

func (ps *pass) convert(ctx context.Context, plan diff.Plan, repairs []diff.Entry, m types.Manifest) types.Manifest {
	previous := make(map[string]*types.SourceRecord)
	var jobs []convert.Job
	add := func(entries []diff.Entry, action types.Action) {
		for _, e := range entries {
			jobs = append(jobs, convert.Job{Observation: e.Observation, Action: action})
			previous[e.Name] = e.Previous
		}
	}
	add(plan.New, types.ActionNew)
	add(plan.Updated, types.ActionUpdated)
	add(repairs, types.ActionRepaired)
	if len(jobs) == 0 {
		return m
	}

	invoker := &convert.Invoker{
		Converter: ps.converter,
		FS:        ps.fs,
		OutputDir: ps.cfg.ArtifactDir,
		Timeout:   ps.cfg.Converter.Timeout,
		Logger:    ps.log,
	}
	batch := invoker.Run(ctx, jobs)

	for _, job := range batch.Converted {
		// A record matched through Unicode normalization takes the observed name.
		if prev := previous[job.Name]; prev != nil && prev.Name != job.Name {
			m = m.Without(prev.Name)
		}
		m = m.With(job.Record())
		ps.event(job.Name, job.Action, nil)
		switch job.Action {
		case types.ActionNew:
			ps.summary.New++
		case types.ActionUpdated:
			ps.summary.Updated++
		case types.ActionRepaired:
			ps.summary.Repaired++
		}
	}
	for _, f := range batch.Failed {
		ps.event(f.Source, types.ActionFailed, f.Err)
		ps.summary.Failed++
	}
	return m
}

// fail ends a pass that could not load.
func (ps *pass) fail(ctx context.Context, err error) (types.PassSummary, error) {
	ps.summary.State = types.StateFailed
	return ps.finish(ctx, err)
}

func (ps *pass) finish(ctx context.Context, err error) (types.PassSummary, error) {
	// History and notifications still go out for a cancelled pass.
	ctx = context.WithoutCancel(ctx)
	ps.summary.FinishedAt = ps.now()
	ps.summary.Duration = ps.summary.FinishedAt.Sub(ps.summary.StartedAt)
	ps.summary.Tracked = ps.manifest.Len()

	attrs := []any{
		slog.String(logging.KeyState, string(ps.summary.State)),
		slog.Int("new", ps.summary.New),
		slog.Int("updated", ps.summary.Updated),
		slog.Int("unchanged", ps.summary.Unchanged),
		slog.Int("orphaned", ps.summary.Orphaned),
		slog.Int("repaired", ps.summary.Repaired),
		slog.Int("failed", ps.summary.Failed),
		slog.Int("tracked", ps.summary.Tracked),
		slog.Duration("duration", ps.summary.Duration),
	}
	switch {
	case err != nil:
		ps.summary.Error = err.Error()
		ps.log.Error("pass failed", append(attrs, logging.Err(err))...)
	case ps.summary.HasFailures():
		ps.log.Warn("pass complete with failures", attrs...)
	default:
		ps.log.Info("pass complete", attrs...)
	}

	if ps.recorder != nil {
		if rerr := ps.recorder.Record(ctx, ps.summary); rerr != nil {
			ps.log.Warn("failed to record pass history", logging.Err(rerr))
		}
	}
	if ps.notifier != nil {
		if nerr := ps.notifier.Notify(ctx, ps.summary); nerr != nil {
			ps.log.Warn("failed to send pass notification", logging.Err(nerr))
		}
	}
	return ps.summary, err
}
