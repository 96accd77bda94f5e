// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish renders the reader-facing index of converted artifacts.
//
// The index is regenerated wholly from the manifest on every pass. Its bytes
// depend only on the manifest and the publisher's settings, so two passes over
// the same manifest produce identical files.
package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/jkudo/slideview/internal/fsutil"
	"github.com/jkudo/slideview/pkg/types"
)

// Entries derives index entries from the manifest, newest first. Ties on the
// modification time are broken by source name. ArtifactPath is relative to
// indexDir and slash-separated.
func Entries(m types.Manifest, indexDir, artifactDir string) []types.IndexEntry {
	entries := make([]types.IndexEntry, 0, m.Len())
	for _, rec := range m.Records {
		artifact := types.ArtifactName(rec.Name)
		entries = append(entries, types.IndexEntry{
			DisplayName:  artifact,
			ArtifactPath: relativePath(indexDir, filepath.Join(artifactDir, artifact)),
			SourceName:   rec.Name,
			LastModified: rec.LastModified,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return a.SourceName < b.SourceName
	})
	return entries
}

func relativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		rel = target
	}
	return filepath.ToSlash(rel)
}

// Sources returns the viewer's source list: record names sorted, stamped with
// the newest record modification time.
func Sources(m types.Manifest) types.SourceList {
	list := types.SourceList{Slides: make([]string, 0, m.Len())}
	for _, rec := range m.Records {
		list.Slides = append(list.Slides, rec.Name)
		if rec.LastModified.After(list.LastUpdated) {
			list.LastUpdated = rec.LastModified
		}
	}
	sort.Strings(list.Slides)
	return list
}

// Publisher writes the index (and optionally the source list) for a manifest.
type Publisher struct {
	FS afero.Fs

	// Path is the index file. ArtifactPath values are relative to its directory.
	Path string

	// ArtifactDir is the directory holding the converted artifacts.
	ArtifactDir string

	Format types.IndexFormat
	Title  string

	// SourcesPath receives the source list as JSON when non-empty.
	SourcesPath string
}

// NewPublisher returns a publisher configured from cfg.
func NewPublisher(fs afero.Fs, cfg types.Config) *Publisher {
	return &Publisher{
		FS:          fs,
		Path:        cfg.Index.Path,
		ArtifactDir: cfg.ArtifactDir,
		Format:      cfg.Index.Format,
		Title:       cfg.Index.Title,
		SourcesPath: cfg.Index.SourcesPath,
	}
}

// Publish renders the index for m and writes it atomically.
func (p *Publisher) Publish(m types.Manifest) error {
	entries := Entries(m, filepath.Dir(p.Path), p.ArtifactDir)

	data, err := p.Render(entries)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(p.FS, p.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", p.Path, err)
	}

	if p.SourcesPath == "" {
		return nil
	}
	data, err = renderSources(Sources(m))
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(p.FS, p.SourcesPath, data, 0o644); err != nil {
		return fmt.Errorf("writing source list %s: %w", p.SourcesPath, err)
	}
	return nil
}

// Render returns the index bytes for entries in the publisher's format.
func (p *Publisher) Render(entries []types.IndexEntry) ([]byte, error) {
	switch p.Format {
	case types.IndexJSON:
		return renderJSON(entries)
	case types.IndexYAML:
		return renderYAML(entries)
	case types.IndexHTML, "":
		return renderHTML(p.Title, entries)
	default:
		return nil, fmt.Errorf("unknown index format %q", p.Format)
	}
}

// entryDoc is the wire form of an index entry for json and yaml output.
type entryDoc struct {
	DisplayName  string `json:"displayName" yaml:"display_name"`
	ArtifactPath string `json:"artifactRelativePath" yaml:"artifact_relative_path"`
	SourceName   string `json:"sourceName" yaml:"source_name"`
	LastModified string `json:"lastModified" yaml:"last_modified"`
}

func docs(entries []types.IndexEntry) []entryDoc {
	out := make([]entryDoc, len(entries))
	for i, e := range entries {
		out[i] = entryDoc{
			DisplayName:  e.DisplayName,
			ArtifactPath: e.ArtifactPath,
			SourceName:   e.SourceName,
			LastModified: types.FormatTimestamp(e.LastModified),
		}
	}
	return out
}

func renderJSON(entries []types.IndexEntry) ([]byte, error) {
	data, err := json.MarshalIndent(docs(entries), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON index: %w", err)
	}
	return append(data, '\n'), nil
}

func renderYAML(entries []types.IndexEntry) ([]byte, error) {
	data, err := yaml.Marshal(docs(entries))
	if err != nil {
		return nil, fmt.Errorf("marshaling YAML index: %w", err)
	}
	return data, nil
}

func renderSources(list types.SourceList) ([]byte, error) {
	doc := struct {
		Slides      []string `json:"slides"`
		LastUpdated string   `json:"lastUpdated,omitempty"`
	}{Slides: list.Slides}
	if !list.LastUpdated.IsZero() {
		doc.LastUpdated = types.FormatTimestamp(list.LastUpdated)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling source list: %w", err)
	}
	return append(data, '\n'), nil
}

// artifactURL escapes each segment of a relative artifact path for use as a
// link target, so "#", "?" and "%" in file names stay part of the path.
func artifactURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	href := strings.Join(segments, "/")
	// A colon in the first segment would read as a URL scheme.
	if strings.Contains(segments[0], ":") {
		href = "./" + href
	}
	return href
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"artifactURL": artifactURL,
	"timestamp":   types.FormatTimestamp,
	"date":        func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 20px; }
    a { color: blue; text-decoration: none; }
    a:hover { text-decoration: underline; }
    time { color: #666; margin-left: 0.5em; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
{{- if .Entries}}
  <ul>
{{- range .Entries}}
    <li><a href="{{artifactURL .ArtifactPath}}">{{.DisplayName}}</a><time datetime="{{timestamp .LastModified}}">{{date .LastModified}}</time></li>
{{- end}}
  </ul>
{{- else}}
  <p>No documents have been published yet.</p>
{{- end}}
</body>
</html>
`))

func renderHTML(title string, entries []types.IndexEntry) ([]byte, error) {
	if title == "" {
		title = "Slides Index"
	}
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		Title   string
		Entries []types.IndexEntry
	}{title, entries})
	if err != nil {
		return nil, fmt.Errorf("rendering HTML index: %w", err)
	}
	return buf.Bytes(), nil
}
