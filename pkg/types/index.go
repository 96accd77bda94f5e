// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// IndexEntry is one row of the published index.
type IndexEntry struct {
	// DisplayName is the artifact file name shown to readers.
	DisplayName string `json:"displayName" yaml:"display_name"`

	// ArtifactPath is the slash-separated artifact path relative to the
	// index file's directory (e.g. "pdfs/deck.pdf").
	ArtifactPath string `json:"artifactRelativePath" yaml:"artifact_relative_path"`

	// SourceName is the manifest record the entry was derived from.
	SourceName string `json:"sourceName" yaml:"source_name"`

	// LastModified is the source modification time of the converted revision.
	LastModified time.Time `json:"lastModified" yaml:"last_modified"`
}

// SourceList is the viewer's list of source files.
type SourceList struct {
	Slides      []string  `json:"slides" yaml:"slides"`
	LastUpdated time.Time `json:"lastUpdated" yaml:"last_updated"`
}
