// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reap deletes the artifacts of sources that disappeared and drops
// their manifest records.
package reap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/pkg/types"
)

// ArtifactDeleteError records an artifact that could not be removed. The
// manifest record is dropped regardless; Sweep removes the stray file on a
// later pass.
type ArtifactDeleteError struct {
	Source string
	Path   string
	Err    error
}

func (e *ArtifactDeleteError) Error() string {
	return fmt.Sprintf("deleting artifact %s of %s: %v", e.Path, e.Source, e.Err)
}

func (e *ArtifactDeleteError) Unwrap() error { return e.Err }

// Result reports what a reap did.
type Result struct {
	// Removed lists the orphaned source names dropped from the manifest.
	Removed []string
	// Deleted lists artifact paths that were deleted.
	Deleted []string
	// DeleteErrors lists artifacts that could not be deleted.
	DeleteErrors []*ArtifactDeleteError
}

// Reaper removes orphans from the artifact directory and the manifest.
type Reaper struct {
	FS          afero.Fs
	ArtifactDir string
	Logger      *slog.Logger
}

// Reap deletes artifactDir/<name>.pdf for every orphan, if present, and
// returns m without the orphaned records. A missing artifact is not an
// error, so reaping is idempotent.
func (r *Reaper) Reap(orphans []types.SourceRecord, m types.Manifest) (types.Manifest, Result) {
	logger := logging.OrDiscard(r.Logger)
	var result Result
	names := make([]string, 0, len(orphans))

	for _, orphan := range orphans {
		path := filepath.Join(r.ArtifactDir, types.ArtifactName(orphan.Name))
		log := logger.With(slog.String(logging.KeySource, orphan.Name), slog.String(logging.KeyArtifact, path))

		switch err := r.FS.Remove(path); {
		case err == nil:
			log.Info("removed orphan artifact")
			result.Deleted = append(result.Deleted, path)
		case errors.Is(err, os.ErrNotExist):
			log.Debug("orphan artifact already absent")
		default:
			delErr := &ArtifactDeleteError{Source: orphan.Name, Path: path, Err: err}
			log.Warn("failed to remove orphan artifact", logging.Err(err))
			result.DeleteErrors = append(result.DeleteErrors, delErr)
		}

		log.Info("removing orphan from manifest")
		names = append(names, orphan.Name)
	}

	result.Removed = names
	return m.Without(names...), result
}

// Sweep deletes PDFs in the artifact directory that belong to none of the
// given source names. The artifact directory is owned by the pipeline, so
// such files are leftovers of failed deletions or conversions. A missing
// directory is not an error.
func (r *Reaper) Sweep(sources []string) Result {
	logger := logging.OrDiscard(r.Logger)
	keep := make(map[string]struct{}, len(sources))
	for _, name := range sources {
		keep[types.ArtifactName(name)] = struct{}{}
	}

	var result Result
	entries, err := afero.ReadDir(r.FS, r.ArtifactDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to list artifact directory", slog.String("dir", r.ArtifactDir), logging.Err(err))
		}
		return result
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(name), types.ArtifactExt) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		path := filepath.Join(r.ArtifactDir, name)
		if err := r.FS.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove stray artifact", slog.String(logging.KeyArtifact, path), logging.Err(err))
			result.DeleteErrors = append(result.DeleteErrors, &ArtifactDeleteError{Path: path, Err: err})
			continue
		}
		logger.Info("removed stray artifact", slog.String(logging.KeyArtifact, path))
		result.Deleted = append(result.Deleted, path)
	}
	return result
}
