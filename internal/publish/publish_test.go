// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/jkudo/slideview/pkg/types"
)

func ts(s string) time.Time {
	t, err := types.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleManifest() types.Manifest {
	return types.Manifest{Records: []types.SourceRecord{
		{Name: "b.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
		{Name: "a.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
		{Name: "old.ppt", LastModified: ts("2023-06-01T08:30:00.000Z")},
		{Name: "new.pptx", LastModified: ts("2024-03-01T12:00:00.500Z")},
	}}
}

func newPublisher(fs afero.Fs, format types.IndexFormat) *Publisher {
	return &Publisher{
		FS:          fs,
		Path:        "docs/index.html",
		ArtifactDir: "docs/pdfs",
		Format:      format,
		Title:       "Team Decks",
	}
}

func TestEntries_Order(t *testing.T) {
	entries := Entries(sampleManifest(), "docs", "docs/pdfs")
	require.Len(t, entries, 4)

	var names []string
	for _, e := range entries {
		names = append(names, e.SourceName)
	}
	assert.Equal(t, []string{"new.pptx", "a.pptx", "b.pptx", "old.ppt"}, names)
}

func TestEntries_Fields(t *testing.T) {
	m := types.Manifest{Records: []types.SourceRecord{
		{Name: "deck.v2.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
	}}
	entries := Entries(m, "docs", "docs/pdfs")
	require.Len(t, entries, 1)
	assert.Equal(t, types.IndexEntry{
		DisplayName:  "deck.v2.pdf",
		ArtifactPath: "pdfs/deck.v2.pdf",
		SourceName:   "deck.v2.pptx",
		LastModified: ts("2024-01-25T10:00:00.000Z"),
	}, entries[0])
}

func TestEntries_ArtifactOutsideIndexDir(t *testing.T) {
	m := types.Manifest{Records: []types.SourceRecord{
		{Name: "a.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
	}}
	entries := Entries(m, "site", "build/pdfs")
	require.Len(t, entries, 1)
	assert.Equal(t, "../build/pdfs/a.pdf", entries[0].ArtifactPath)
}

func TestEntries_Empty(t *testing.T) {
	assert.Empty(t, Entries(types.Manifest{}, "docs", "docs/pdfs"))
}

func TestPublish_HTML(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newPublisher(fs, types.IndexHTML)
	require.NoError(t, p.Publish(sampleManifest()))

	data, err := afero.ReadFile(fs, "docs/index.html")
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<title>Team Decks</title>")
	assert.Contains(t, html, `<a href="pdfs/new.pdf">new.pdf</a>`)
	assert.Contains(t, html, `datetime="2024-03-01T12:00:00.500Z"`)
	assert.Less(t, strings.Index(html, "new.pdf"), strings.Index(html, "old.pdf"))
	assert.Less(t, strings.Index(html, "a.pdf"), strings.Index(html, "b.pdf"))
}

func TestPublish_HTMLEscapesNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := types.Manifest{Records: []types.SourceRecord{
		{Name: "<script>.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
	}}
	require.NoError(t, newPublisher(fs, types.IndexHTML).Publish(m))

	data, err := afero.ReadFile(fs, "docs/index.html")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<script>")
	assert.Contains(t, string(data), "&lt;script&gt;.pdf")
}

func TestPublish_HTMLLinksKeepSpecialCharactersInPath(t *testing.T) {
	m := types.Manifest{Records: []types.SourceRecord{
		{Name: "deck#1.pptx", LastModified: ts("2024-01-25T10:00:00.000Z")},
		{Name: "q?a.pptx", LastModified: ts("2024-01-24T10:00:00.000Z")},
		{Name: "10:30 talk.pptx", LastModified: ts("2024-01-23T10:00:00.000Z")},
		{Name: "50%.pptx", LastModified: ts("2024-01-22T10:00:00.000Z")},
	}}

	fs := afero.NewMemMapFs()
	require.NoError(t, newPublisher(fs, types.IndexHTML).Publish(m))
	data, err := afero.ReadFile(fs, "docs/index.html")
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, `href="pdfs/deck%231.pdf"`)
	assert.Contains(t, html, `href="pdfs/q%3Fa.pdf"`)
	assert.Contains(t, html, `href="pdfs/10:30%20talk.pdf"`)
	assert.Contains(t, html, `href="pdfs/50%25.pdf"`)

	// Artifacts next to the index: the colon must not become a scheme.
	flat := &Publisher{FS: fs, Path: "docs/index.html", ArtifactDir: "docs", Format: types.IndexHTML}
	require.NoError(t, flat.Publish(m))
	data, err = afero.ReadFile(fs, "docs/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), `href="./10:30%20talk.pdf"`)
	assert.NotContains(t, string(data), "ZgotmplZ")

	// Machine-readable formats keep the raw relative path.
	jsonPub := newPublisher(fs, types.IndexJSON)
	jsonPub.Path = "docs/index.json"
	require.NoError(t, jsonPub.Publish(m))
	data, err = afero.ReadFile(fs, "docs/index.json")
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(data, &docs))
	require.Len(t, docs, 4)
	assert.Equal(t, "pdfs/deck#1.pdf", docs[0]["artifactRelativePath"])
	assert.Equal(t, "pdfs/q?a.pdf", docs[1]["artifactRelativePath"])
}

func TestArtifactURL(t *testing.T) {
	cases := map[string]string{
		"pdfs/a.pdf":          "pdfs/a.pdf",
		"../build/pdfs/a.pdf": "../build/pdfs/a.pdf",
		"Q1 review.pdf":       "Q1%20review.pdf",
		"a:b.pdf":             "./a:b.pdf",
		"pdfs/a:b.pdf":        "pdfs/a:b.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, artifactURL(in), in)
	}
}

func TestPublish_EmptyManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, newPublisher(fs, types.IndexHTML).Publish(types.Manifest{}))

	data, err := afero.ReadFile(fs, "docs/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "No documents have been published yet.")
}

func TestPublish_Deterministic(t *testing.T) {
	for _, format := range []types.IndexFormat{types.IndexHTML, types.IndexJSON, types.IndexYAML} {
		t.Run(string(format), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			p := newPublisher(fs, format)

			require.NoError(t, p.Publish(sampleManifest()))
			first, err := afero.ReadFile(fs, p.Path)
			require.NoError(t, err)

			require.NoError(t, p.Publish(sampleManifest().Sorted()))
			second, err := afero.ReadFile(fs, p.Path)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestPublish_JSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newPublisher(fs, types.IndexJSON)
	p.Path = "docs/index.json"
	require.NoError(t, p.Publish(sampleManifest()))

	data, err := afero.ReadFile(fs, "docs/index.json")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 4)
	assert.Equal(t, map[string]string{
		"displayName":          "new.pdf",
		"artifactRelativePath": "pdfs/new.pdf",
		"sourceName":           "new.pptx",
		"lastModified":         "2024-03-01T12:00:00.500Z",
	}, got[0])
}

func TestPublish_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newPublisher(fs, types.IndexYAML)
	p.Path = "docs/index.yaml"
	require.NoError(t, p.Publish(sampleManifest()))

	data, err := afero.ReadFile(fs, "docs/index.yaml")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got, 4)
	assert.Equal(t, "old.ppt", got[3]["source_name"])
	assert.Equal(t, "pdfs/old.pdf", got[3]["artifact_relative_path"])
	assert.Equal(t, "2023-06-01T08:30:00.000Z", got[3]["last_modified"])
}

func TestPublish_UnknownFormat(t *testing.T) {
	p := newPublisher(afero.NewMemMapFs(), types.IndexFormat("pdf"))
	err := p.Publish(sampleManifest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index format")
}

func TestPublish_SourceList(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newPublisher(fs, types.IndexHTML)
	p.SourcesPath = "docs/slides.json"
	require.NoError(t, p.Publish(sampleManifest()))

	data, err := afero.ReadFile(fs, "docs/slides.json")
	require.NoError(t, err)

	var got struct {
		Slides      []string `json:"slides"`
		LastUpdated string   `json:"lastUpdated"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"a.pptx", "b.pptx", "new.pptx", "old.ppt"}, got.Slides)
	assert.Equal(t, "2024-03-01T12:00:00.500Z", got.LastUpdated)
}

func TestSources_Empty(t *testing.T) {
	list := Sources(types.Manifest{})
	assert.Empty(t, list.Slides)
	assert.True(t, list.LastUpdated.IsZero())
}

func TestNewPublisher(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Index.SourcesPath = "docs/slides.json"
	p := NewPublisher(afero.NewMemMapFs(), cfg)
	assert.Equal(t, "docs/index.html", p.Path)
	assert.Equal(t, "docs/pdfs", p.ArtifactDir)
	assert.Equal(t, types.IndexHTML, p.Format)
	assert.Equal(t, "Slides Index", p.Title)
	assert.Equal(t, "docs/slides.json", p.SourcesPath)
}
