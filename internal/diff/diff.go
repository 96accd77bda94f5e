// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diff classifies sources by comparing a scan snapshot with the
// manifest. Classify is a pure function: it reads both inputs and returns a
// Plan without touching the filesystem.
package diff

import (
	"sort"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jkudo/slideview/pkg/types"
)

// Class is the classification of one source name.
type Class string

const (
	ClassNew       Class = "new"
	ClassUpdated   Class = "updated"
	ClassUnchanged Class = "unchanged"
	ClassOrphaned  Class = "orphaned"
)

// Entry is an observed source together with its manifest record, if any.
type Entry struct {
	types.Observation

	// Previous is the matching manifest record; nil for new sources.
	Previous *types.SourceRecord
}

// Plan is the outcome of Classify. Each slice is sorted by name and every
// name appears in exactly one of them.
type Plan struct {
	New       []Entry
	Updated   []Entry
	Unchanged []Entry
	Orphaned  []types.SourceRecord
}

// ClassOf returns the classification of name, matching observed names first.
func (p Plan) ClassOf(name string) (Class, bool) {
	for _, set := range []struct {
		class   Class
		entries []Entry
	}{{ClassNew, p.New}, {ClassUpdated, p.Updated}, {ClassUnchanged, p.Unchanged}} {
		for _, e := range set.entries {
			if e.Name == name {
				return set.class, true
			}
		}
	}
	for _, r := range p.Orphaned {
		if r.Name == name {
			return ClassOrphaned, true
		}
	}
	return "", false
}

// IsNewer reports whether observed is strictly after recorded at the
// manifest's millisecond resolution. Times are compared as instants, never
// as formatted strings.
func IsNewer(observed, recorded time.Time) bool {
	return types.Normalize(observed).After(types.Normalize(recorded))
}

// Classify compares snap against m.
//
// Names match exactly; a source whose name differs from a record only in
// Unicode normalization (NFC vs NFD, as macOS reports) matches that record.
func Classify(snap types.Snapshot, m types.Manifest) Plan {
	exact := make(map[string]int, m.Len())
	folded := make(map[string]int, m.Len())
	for i, r := range m.Records {
		if _, dup := exact[r.Name]; !dup {
			exact[r.Name] = i
		}
		key := norm.NFC.String(r.Name)
		if _, dup := folded[key]; !dup {
			folded[key] = i
		}
	}

	matched := make(map[int]bool, m.Len())
	var plan Plan
	for _, obs := range snap.Files {
		i, ok := exact[obs.Name]
		if !ok || matched[i] {
			i, ok = folded[norm.NFC.String(obs.Name)]
			ok = ok && !matched[i]
		}
		if !ok {
			plan.New = append(plan.New, Entry{Observation: obs})
			continue
		}
		matched[i] = true
		prev := m.Records[i]
		entry := Entry{Observation: obs, Previous: &prev}
		if IsNewer(obs.ModTime, prev.LastModified) {
			plan.Updated = append(plan.Updated, entry)
		} else {
			plan.Unchanged = append(plan.Unchanged, entry)
		}
	}

	for i, r := range m.Records {
		if !matched[i] {
			plan.Orphaned = append(plan.Orphaned, r)
		}
	}

	sortEntries(plan.New)
	sortEntries(plan.Updated)
	sortEntries(plan.Unchanged)
	sort.Slice(plan.Orphaned, func(i, j int) bool { return plan.Orphaned[i].Name < plan.Orphaned[j].Name })
	return plan
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
