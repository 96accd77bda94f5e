// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest loads and persists the durable record of known sources.
//
// The manifest is a JSON array of {"name", "mtime"} records sorted by name.
// Load is forgiving: a missing or corrupt file yields an empty manifest so
// the pass reconverts everything, which is safe because artifacts are
// regenerable. Save is atomic: a crash mid-write leaves the previous file.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/jkudo/slideview/internal/fsutil"
	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/pkg/types"
)

var (
	// ErrUnreadable marks a manifest that exists but cannot be read.
	ErrUnreadable = errors.New("manifest unreadable")

	// ErrParse marks a manifest whose content is not a valid record list.
	// Load recovers from it by returning an empty manifest.
	ErrParse = errors.New("manifest parse error")
)

// Store reads and writes the manifest file.
type Store struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// NewStore returns a store for the manifest at path.
func NewStore(fs afero.Fs, path string, logger *slog.Logger) *Store {
	return &Store{fs: fs, path: path, logger: logging.OrDiscard(logger)}
}

// Path returns the manifest file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted manifest. A missing file or a parse failure
// yields an empty manifest and a nil error; any other read failure returns
// an error wrapping ErrUnreadable.
func (s *Store) Load() (types.Manifest, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no manifest found, starting empty", slog.String("path", s.path))
			return types.Manifest{}, nil
		}
		return types.Manifest{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, s.path, err)
	}

	m, err := Decode(data)
	if err != nil {
		s.logger.Warn("failed to parse manifest, starting empty",
			slog.String("path", s.path), logging.Err(err))
		return types.Manifest{}, nil
	}

	m, dups := dedupe(m)
	for _, name := range dups {
		s.logger.Warn("duplicate manifest record, keeping newest", slog.String(logging.KeySource, name))
	}
	return m, nil
}

// Save writes m sorted by name, atomically replacing the previous file.
func (s *Store) Save(m types.Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving manifest %s: %w", s.path, err)
	}
	return nil
}

// Encode renders m in its persisted form: an indented JSON array sorted by
// name with a trailing newline.
func Encode(m types.Manifest) ([]byte, error) {
	records := m.Sorted().Records
	if records == nil {
		records = []types.SourceRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted manifest. Errors wrap ErrParse.
func Decode(data []byte) (types.Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Manifest{}, nil
	}
	var records []types.SourceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return types.Manifest{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return types.Manifest{Records: records}, nil
}

// dedupe keeps the newest record per name and reports the duplicated names.
func dedupe(m types.Manifest) (types.Manifest, []string) {
	seen := make(map[string]int, len(m.Records))
	out := make([]types.SourceRecord, 0, len(m.Records))
	var dups []string
	for _, r := range m.Records {
		i, ok := seen[r.Name]
		if !ok {
			seen[r.Name] = len(out)
			out = append(out, r)
			continue
		}
		dups = append(dups, r.Name)
		if r.LastModified.After(out[i].LastModified) {
			out[i] = r
		}
	}
	return types.Manifest{Records: out}, dups
}
