// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the slideview sync pipeline:
// the manifest of known sources, scan snapshots, pass summaries, published
// index entries, and configuration.
package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the manifest's timestamp format: ISO-8601 UTC with
// millisecond precision (e.g. "2024-01-25T10:00:00.000Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// TimestampResolution is the precision at which modification times are
// stored and compared.
const TimestampResolution = time.Millisecond

// ArtifactExt is the extension of every generated artifact.
const ArtifactExt = ".pdf"

// Normalize truncates t to the manifest resolution and converts it to UTC.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampResolution)
}

// FormatTimestamp renders t in the manifest layout.
func FormatTimestamp(t time.Time) string {
	return Normalize(t).Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Any RFC 3339 value is
// accepted; the result is normalized to the manifest resolution.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return Normalize(t), nil
}

// ArtifactName derives the artifact file name for a source by replacing its
// final extension with .pdf ("deck.v2.pptx" becomes "deck.v2.pdf").
func ArtifactName(sourceName string) string {
	base := filepath.Base(sourceName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ArtifactExt
}

// SourceRecord is one manifest entry: a source file's base name and the
// modification time last confirmed as converted.
type SourceRecord struct {
	// Name is the source file's base name including extension. Unique key.
	Name string `json:"name" yaml:"name"`

	// LastModified is the source modification time at the last successful
	// conversion, in UTC at TimestampResolution.
	LastModified time.Time `json:"mtime" yaml:"mtime"`
}

// sourceRecordJSON is the wire form of SourceRecord. File carries the legacy
// key written by older pdf-list.json generators.
type sourceRecordJSON struct {
	Name  string `json:"name,omitempty"`
	File  string `json:"file,omitempty"`
	MTime string `json:"mtime"`
}

// MarshalJSON writes {"name", "mtime"} with the manifest timestamp layout.
func (r SourceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(sourceRecordJSON{
		Name:  r.Name,
		MTime: FormatTimestamp(r.LastModified),
	})
}

// UnmarshalJSON accepts both "name" and the legacy "file" key.
func (r *SourceRecord) UnmarshalJSON(data []byte) error {
	var raw sourceRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name := raw.Name
	if name == "" {
		name = raw.File
	}
	if name == "" {
		return fmt.Errorf("manifest record has no name")
	}
	t, err := ParseTimestamp(raw.MTime)
	if err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	r.Name = name
	r.LastModified = t
	return nil
}

// Manifest is the durable record of known sources. Methods never modify the
// receiver; they return derived manifests.
type Manifest struct {
	Records []SourceRecord
}

// Len returns the number of records.
func (m Manifest) Len() int { return len(m.Records) }

// Lookup returns the record for name, if present.
func (m Manifest) Lookup(name string) (SourceRecord, bool) {
	for _, r := range m.Records {
		if r.Name == name {
			return r, true
		}
	}
	return SourceRecord{}, false
}

// Names returns the record names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, len(m.Records))
	for i, r := range m.Records {
		names[i] = r.Name
	}
	return names
}

// With returns a manifest where rec replaces any record of the same name,
// or is appended when the name is new.
func (m Manifest) With(rec SourceRecord) Manifest {
	out := make([]SourceRecord, 0, len(m.Records)+1)
	replaced := false
	for _, r := range m.Records {
		if r.Name == rec.Name {
			out = append(out, rec)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, rec)
	}
	return Manifest{Records: out}
}

// Without returns a manifest with the named records removed.
func (m Manifest) Without(names ...string) Manifest {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	out := make([]SourceRecord, 0, len(m.Records))
	for _, r := range m.Records {
		if _, ok := drop[r.Name]; ok {
			continue
		}
		out = append(out, r)
	}
	return Manifest{Records: out}
}

// Sorted returns a copy ordered by name, the manifest's persisted order.
func (m Manifest) Sorted() Manifest {
	out := make([]SourceRecord, len(m.Records))
	copy(out, m.Records)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return Manifest{Records: out}
}

// Equal reports whether both manifests hold the same records regardless of order.
func (m Manifest) Equal(other Manifest) bool {
	if len(m.Records) != len(other.Records) {
		return false
	}
	a, b := m.Sorted(), other.Sorted()
	for i := range a.Records {
		if a.Records[i].Name != b.Records[i].Name ||
			!a.Records[i].LastModified.Equal(b.Records[i].LastModified) {
			return false
		}
	}
	return true
}
