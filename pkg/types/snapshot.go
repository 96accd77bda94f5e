// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Observation is one eligible source file seen by the scanner.
type Observation struct {
	// Name is the file's base name as reported by the filesystem.
	Name string `json:"name" yaml:"name"`

	// Path is the full path to the source file.
	Path string `json:"path" yaml:"path"`

	// ModTime is the file's modification time, normalized to UTC and
	// TimestampResolution.
	ModTime time.Time `json:"mtime" yaml:"mtime"`
}

// Record returns the manifest record describing this observation.
func (o Observation) Record() SourceRecord {
	return SourceRecord{Name: o.Name, LastModified: o.ModTime}
}

// Snapshot is an immutable scan of a source directory, sorted by name.
type Snapshot struct {
	Dir   string        `json:"dir" yaml:"dir"`
	Files []Observation `json:"files" yaml:"files"`
}

// Len returns the number of observed files.
func (s Snapshot) Len() int { return len(s.Files) }

// Names returns the observed file names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = f.Name
	}
	return names
}
