// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/jkudo/slideview/pkg/types"
)

func obs(name string, t time.Time) types.Observation {
	return types.Observation{Name: name, Path: "slides/" + name, ModTime: types.Normalize(t)}
}

func rec(name string, t time.Time) types.SourceRecord {
	return types.SourceRecord{Name: name, LastModified: types.Normalize(t)}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestClassify(t *testing.T) {
	t0 := time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	snap := types.Snapshot{Files: []types.Observation{
		obs("a.pptx", t0),
		obs("b.pptx", t1),
		obs("d.pptx", t0),
		obs("e.pptx", t0.Add(-time.Hour)),
	}}
	m := types.Manifest{Records: []types.SourceRecord{
		rec("c.pptx", t0),
		rec("b.pptx", t0),
		rec("d.pptx", t0),
		rec("e.pptx", t0),
	}}

	plan := Classify(snap, m)

	assert.Equal(t, []string{"a.pptx"}, names(plan.New))
	assert.Equal(t, []string{"b.pptx"}, names(plan.Updated))
	assert.Equal(t, []string{"d.pptx", "e.pptx"}, names(plan.Unchanged))
	require.Len(t, plan.Orphaned, 1)
	assert.Equal(t, "c.pptx", plan.Orphaned[0].Name)

	assert.Nil(t, plan.New[0].Previous)
	require.NotNil(t, plan.Updated[0].Previous)
	assert.True(t, plan.Updated[0].Previous.LastModified.Equal(t0))
}

func TestClassify_EveryNameExactlyOnce(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var snap types.Snapshot
	var m types.Manifest
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		n := name + ".pptx"
		if i%3 != 0 {
			snap.Files = append(snap.Files, obs(n, base.Add(time.Duration(i-4)*time.Minute)))
		}
		if i%2 == 0 {
			m.Records = append(m.Records, rec(n, base))
		}
	}

	plan := Classify(snap, m)
	counts := map[string]int{}
	for _, e := range plan.New {
		counts[e.Name]++
	}
	for _, e := range plan.Updated {
		counts[e.Name]++
	}
	for _, e := range plan.Unchanged {
		counts[e.Name]++
	}
	for _, r := range plan.Orphaned {
		counts[r.Name]++
	}
	assert.Len(t, counts, 7, "d.pptx is neither observed nor recorded")
	for name, n := range counts {
		assert.Equal(t, 1, n, name)
	}
}

func TestClassify_NumericTimestampOrder(t *testing.T) {
	// Each pair is ordered chronologically although a lexicographic
	// comparison of some rendering would order it the other way.
	tests := []struct {
		name     string
		recorded time.Time
		observed time.Time
		want     Class
	}{
		{
			name:     "year rollover",
			recorded: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			observed: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want:     ClassUpdated,
		},
		{
			name:     "different zones, same instant",
			recorded: time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC),
			observed: time.Date(2024, 1, 25, 19, 0, 0, 0, time.FixedZone("JST", 9*3600)),
			want:     ClassUnchanged,
		},
		{
			name:     "earlier instant rendered in a later-sorting zone",
			recorded: time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC),
			observed: time.Date(2024, 1, 25, 18, 0, 0, 0, time.FixedZone("JST", 9*3600)),
			want:     ClassUnchanged,
		},
		{
			name:     "one millisecond newer",
			recorded: time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC),
			observed: time.Date(2024, 1, 25, 10, 0, 0, int(time.Millisecond), time.UTC),
			want:     ClassUpdated,
		},
		{
			name:     "sub-millisecond difference is not newer",
			recorded: time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC),
			observed: time.Date(2024, 1, 25, 10, 0, 0, 999, time.UTC),
			want:     ClassUnchanged,
		},
		{
			name:     "older source",
			recorded: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			observed: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:     ClassUnchanged,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := types.Snapshot{Files: []types.Observation{
				{Name: "deck.pptx", ModTime: tt.observed},
			}}
			m := types.Manifest{Records: []types.SourceRecord{
				{Name: "deck.pptx", LastModified: tt.recorded},
			}}
			class, ok := Classify(snap, m).ClassOf("deck.pptx")
			require.True(t, ok)
			assert.Equal(t, tt.want, class)
		})
	}
}

func TestClassify_UnicodeNormalization(t *testing.T) {
	t0 := time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)
	composed := norm.NFC.String("プレゼン資料.pptx")
	decomposed := norm.NFD.String(composed)
	require.NotEqual(t, composed, decomposed)

	snap := types.Snapshot{Files: []types.Observation{obs(decomposed, t0)}}
	m := types.Manifest{Records: []types.SourceRecord{rec(composed, t0)}}

	plan := Classify(snap, m)
	assert.Empty(t, plan.New)
	assert.Empty(t, plan.Orphaned)
	require.Len(t, plan.Unchanged, 1)
	assert.Equal(t, composed, plan.Unchanged[0].Previous.Name)
}

func TestClassify_Empty(t *testing.T) {
	plan := Classify(types.Snapshot{}, types.Manifest{})
	assert.Empty(t, plan.New)
	assert.Empty(t, plan.Updated)
	assert.Empty(t, plan.Unchanged)
	assert.Empty(t, plan.Orphaned)
}

func TestClassify_DoesNotMutateInputs(t *testing.T) {
	t0 := time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)
	m := types.Manifest{Records: []types.SourceRecord{rec("b.pptx", t0), rec("a.pptx", t0)}}
	snap := types.Snapshot{Files: []types.Observation{obs("a.pptx", t0.Add(time.Second))}}

	plan := Classify(snap, m)
	plan.Updated[0].Previous.LastModified = time.Time{}

	assert.Equal(t, []string{"b.pptx", "a.pptx"}, m.Names())
	assert.True(t, m.Records[1].LastModified.Equal(t0))
}

func TestIsNewer(t *testing.T) {
	t0 := time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)
	assert.True(t, IsNewer(t0.Add(time.Second), t0))
	assert.False(t, IsNewer(t0, t0))
	assert.False(t, IsNewer(t0.Add(-time.Second), t0))
}
