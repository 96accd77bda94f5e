package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConverterBackend identifies how the document-to-PDF converter is run.
type ConverterBackend string

const (
	// BackendLibreOffice runs a local LibreOffice binary.
	BackendLibreOffice ConverterBackend = "libreoffice"
	// BackendContainer runs LibreOffice inside a docker or podman image.
	BackendContainer ConverterBackend = "container"
)

// IndexFormat selects how the published index is rendered.
type IndexFormat string

const (
	IndexHTML IndexFormat = "html"
	IndexJSON IndexFormat = "json"
	IndexYAML IndexFormat = "yaml"
)

// ConverterConfig holds settings for the conversion invoker.
type ConverterConfig struct {
	// Backend selects the converter: libreoffice or container.
	Backend ConverterBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Binary is the LibreOffice executable for the libreoffice backend
	// (e.g. "libreoffice" or "soffice").
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Image is the container image for the container backend. Its entrypoint
	// must be LibreOffice.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Timeout bounds a single conversion. Zero disables the limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// IndexConfig holds settings for the index publisher.
type IndexConfig struct {
	// Path is the published index file (e.g. "docs/index.html").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Format selects html, json, or yaml rendering.
	Format IndexFormat `json:"format" yaml:"format" mapstructure:"format"`

	// Title is the heading of the HTML index.
	Title string `json:"title" yaml:"title" mapstructure:"title"`

	// SourcesPath optionally receives the viewer's JSON list of source files.
	SourcesPath string `json:"sources_path,omitempty" yaml:"sources_path,omitempty" mapstructure:"sources_path"`
}

// HistoryConfig holds settings for the pass history database.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// WatchConfig holds settings for repeated passes.
type WatchConfig struct {
	// Debounce is the quiet period after a filesystem event before a pass starts.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// Interval triggers a pass periodically. Zero disables the timer.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// NotifyConfig holds settings for the pass webhook.
type NotifyConfig struct {
	// WebhookURL receives a JSON pass summary after passes with changes.
	// Empty disables notifications.
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Config groups all settings of the sync pipeline and its CLI.
type Config struct {
	// SourceDir holds the presentation sources (e.g. "slides").
	SourceDir string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir"`

	// ArtifactDir receives the generated PDFs (e.g. "docs/pdfs").
	ArtifactDir string `json:"artifact_dir" yaml:"artifact_dir" mapstructure:"artifact_dir"`

	// ManifestPath is the durable manifest file (e.g. "docs/pdf-list.json").
	ManifestPath string `json:"manifest_path" yaml:"manifest_path" mapstructure:"manifest_path"`

	// Extensions lists accepted source extensions, matched case-insensitively.
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// SweepStrays removes PDFs in ArtifactDir that belong to no known source.
	SweepStrays bool `json:"sweep_strays" yaml:"sweep_strays" mapstructure:"sweep_strays"`

	// LockFile guards the manifest against concurrent passes. It lives
	// outside the published directory. Empty means "<manifest_path>.lock".
	LockFile string `json:"lock_file" yaml:"lock_file" mapstructure:"lock_file"`

	// SecretsDir holds credential files (e.g. webhook-token).
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`

	Converter ConverterConfig `json:"converter" yaml:"converter" mapstructure:"converter"`
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Watch     WatchConfig     `json:"watch" yaml:"watch" mapstructure:"watch"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify" mapstructure:"notify"`
}

// DefaultConfig returns the standard site layout:
// slides/ in, docs/pdfs/ out, docs/pdf-list.json and docs/index.html.
func DefaultConfig() Config {
	return Config{
		SourceDir:    "slides",
		ArtifactDir:  "docs/pdfs",
		ManifestPath: "docs/pdf-list.json",
		Extensions:   []string{".pptx", ".ppt"},
		SweepStrays:  true,
		LockFile:     ".slideview/sync.lock",
		SecretsDir:   ".secrets",
		Converter: ConverterConfig{
			Backend: BackendLibreOffice,
			Binary:  "libreoffice",
			Image:   "slideview/libreoffice:latest",
			Timeout: 5 * time.Minute,
		},
		Index: IndexConfig{
			Path:   "docs/index.html",
			Format: IndexHTML,
			Title:  "Slides Index",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".slideview/history.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// LockPath returns the pass lock file guarding the manifest.
func (c Config) LockPath() string {
	if strings.TrimSpace(c.LockFile) != "" {
		return c.LockFile
	}
	return c.ManifestPath + ".lock"
}

// NormalizedExtensions returns the extensions lower-cased with a leading dot.
func (c Config) NormalizedExtensions() []string {
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SourceDir) == "" {
		errs = append(errs, errors.New("source_dir is required"))
	}
	if strings.TrimSpace(c.ArtifactDir) == "" {
		errs = append(errs, errors.New("artifact_dir is required"))
	}
	if strings.TrimSpace(c.ManifestPath) == "" {
		errs = append(errs, errors.New("manifest_path is required"))
	}
	if len(c.NormalizedExtensions()) == 0 {
		errs = append(errs, errors.New("extensions must list at least one source extension"))
	}
	for _, ext := range c.NormalizedExtensions() {
		if ext == ArtifactExt {
			errs = append(errs, fmt.Errorf("extension %s collides with the artifact extension", ext))
		}
	}

	switch c.Converter.Backend {
	case BackendLibreOffice:
		if strings.TrimSpace(c.Converter.Binary) == "" {
			errs = append(errs, errors.New("converter.binary is required for the libreoffice backend"))
		}
	case BackendContainer:
		if strings.TrimSpace(c.Converter.Image) == "" {
			errs = append(errs, errors.New("converter.image is required for the container backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("converter.backend %q: use libreoffice or container", c.Converter.Backend))
	}
	if c.Converter.Timeout < 0 {
		errs = append(errs, errors.New("converter.timeout must not be negative"))
	}

	if strings.TrimSpace(c.Index.Path) == "" {
		errs = append(errs, errors.New("index.path is required"))
	}
	switch c.Index.Format {
	case IndexHTML, IndexJSON, IndexYAML:
	default:
		errs = append(errs, fmt.Errorf("index.format %q: use html, json, or yaml", c.Index.Format))
	}

	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}
	if c.Watch.Debounce < 0 || c.Watch.Interval < 0 {
		errs = append(errs, errors.New("watch durations must not be negative"))
	}
	if c.Notify.Timeout < 0 {
		errs = append(errs, errors.New("notify.timeout must not be negative"))
	}

	return errors.Join(errs...)
}
