// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan lists the eligible source files of a watched directory.
//
// A scan produces an immutable types.Snapshot. A directory that cannot be
// read is an error, never an empty snapshot: an empty result would classify
// every known source as orphaned and delete its artifact.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jkudo/slideview/pkg/types"
)

// ErrUnreadable marks a source directory that could not be listed.
var ErrUnreadable = errors.New("source directory unreadable")

// Scan lists the regular files in dir whose extension matches one of exts
// (case-insensitive). Hidden files and office lock files are ignored.
func Scan(fs afero.Fs, dir string, exts []string) (types.Snapshot, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, dir, err)
	}
	if !info.IsDir() {
		return types.Snapshot{}, fmt.Errorf("%w: %s is not a directory", ErrUnreadable, dir)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, dir, err)
	}

	accept := extensionSet(exts)
	snap := types.Snapshot{Dir: dir}
	for _, entry := range entries {
		name := entry.Name()
		if ignored(name) || !accept.matches(name) {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Stat(path)
			if err != nil {
				continue
			}
			entry = target
		}
		if !entry.Mode().IsRegular() {
			continue
		}

		snap.Files = append(snap.Files, types.Observation{
			Name:    name,
			Path:    path,
			ModTime: types.Normalize(entry.ModTime()),
		})
	}

	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Name < snap.Files[j].Name })
	return snap, nil
}

// Matches reports whether Scan would accept name: one of exts, ignoring case,
// and not a hidden or lock file. The watcher uses it to filter events.
func Matches(name string, exts []string) bool {
	return !ignored(filepath.Base(name)) && extensionSet(exts).matches(name)
}

type extSet map[string]struct{}

func extensionSet(exts []string) extSet {
	set := make(extSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

func (s extSet) matches(name string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ignored reports hidden files and the lock files office suites leave next
// to open documents (".~lock.deck.pptx#", "~$deck.pptx").
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}
