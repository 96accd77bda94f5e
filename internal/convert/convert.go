// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert invokes the external document-to-PDF converter for new and
// updated sources.
//
// Converters are black boxes: given a source path and an output directory
// they either produce <base>.pdf there or fail. The Invoker runs jobs one
// at a time, bounds each with a timeout, and verifies the artifact before
// reporting success. A failed job never aborts the batch.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/pkg/types"
)

// Converter transforms a source document into a PDF. On success the file
// <source base name>.pdf exists in outputDir. Different backends
// (local LibreOffice, containerized LibreOffice) implement this interface.
type Converter interface {
	Convert(ctx context.Context, sourcePath, outputDir string) error
}

// ErrNoArtifact reports a conversion that claimed success without producing
// a fresh artifact.
var ErrNoArtifact = errors.New("converter produced no artifact")

// ConversionError records a failed conversion of one source.
type ConversionError struct {
	Source string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s: %v", e.Source, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Job is one source scheduled for conversion.
type Job struct {
	// Observation is the scanned source. Its ModTime becomes the manifest
	// timestamp when the conversion succeeds.
	types.Observation

	// Action is why the job was scheduled: new, updated, or repaired.
	Action types.Action
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted []Job
	Failed    []*ConversionError
}

// Total returns the total number of jobs processed.
func (r BatchResult) Total() int {
	return len(r.Converted) + len(r.Failed)
}

// HasFailures reports whether any job failed.
func (r BatchResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// Invoker runs a Converter over a batch of jobs.
type Invoker struct {
	Converter Converter
	// FS is used to verify artifacts. Nil means the OS filesystem.
	FS afero.Fs
	// OutputDir receives the artifacts.
	OutputDir string
	// Timeout bounds each conversion. Zero disables the limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// ArtifactPath returns where the artifact for source name is expected.
func (inv *Invoker) ArtifactPath(name string) string {
	return filepath.Join(inv.OutputDir, types.ArtifactName(name))
}

// Run converts jobs sequentially. Once ctx is done, remaining jobs are
// recorded as failed without being started so the next pass retries them.
func (inv *Invoker) Run(ctx context.Context, jobs []Job) BatchResult {
	logger := logging.OrDiscard(inv.Logger)
	var result BatchResult
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, &ConversionError{Source: job.Name, Err: err})
			logger.Warn("conversion skipped", slog.String(logging.KeySource, job.Name), logging.Err(err))
			continue
		}
		if err := inv.convertOne(ctx, job, logger); err != nil {
			result.Failed = append(result.Failed, &ConversionError{Source: job.Name, Err: err})
			continue
		}
		result.Converted = append(result.Converted, job)
	}
	return result
}

func (inv *Invoker) convertOne(ctx context.Context, job Job, logger *slog.Logger) error {
	fs := inv.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	artifact := inv.ArtifactPath(job.Name)
	log := logger.With(
		slog.String(logging.KeySource, job.Name),
		slog.String(logging.KeyArtifact, artifact),
		slog.String("action", string(job.Action)),
	)

	if err := fs.MkdirAll(inv.OutputDir, 0o755); err != nil {
		log.Error("conversion failed", logging.Err(err))
		return fmt.Errorf("creating output directory: %w", err)
	}

	before := statArtifact(fs, artifact)

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	log.Info("converting")
	start := time.Now()
	err := inv.Converter.Convert(ctx, job.Path, inv.OutputDir)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", inv.Timeout, err)
	}
	if err != nil {
		log.Error("conversion failed", logging.Err(err))
		return err
	}

	after, statErr := fs.Stat(artifact)
	if statErr != nil || !after.Mode().IsRegular() || before.unchanged(after) {
		err := fmt.Errorf("%w: %s", ErrNoArtifact, artifact)
		log.Error("conversion failed", logging.Err(err))
		return err
	}

	log.Info("converted", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// artifactState is the modification time and size of an artifact, copied out
// of its FileInfo. Some filesystems return a live view from Stat.
type artifactState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func statArtifact(fs afero.Fs, path string) artifactState {
	info, err := fs.Stat(path)
	if err != nil {
		return artifactState{}
	}
	return artifactState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// unchanged reports an artifact left untouched by a conversion that claimed success.
func (s artifactState) unchanged(after os.FileInfo) bool {
	if !s.exists {
		return false
	}
	return s.modTime.Equal(after.ModTime()) && s.size == after.Size()
}
