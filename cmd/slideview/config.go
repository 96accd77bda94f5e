// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/jkudo/slideview/pkg/types"
)

// setDefaults registers every configuration key so environment variables
// and flags can override it. Durations are registered as strings so that
// "config show" prints them readably.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("source_dir", d.SourceDir)
	v.SetDefault("artifact_dir", d.ArtifactDir)
	v.SetDefault("manifest_path", d.ManifestPath)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("sweep_strays", d.SweepStrays)
	v.SetDefault("lock_file", d.LockFile)
	v.SetDefault("secrets_dir", d.SecretsDir)

	v.SetDefault("converter.backend", string(d.Converter.Backend))
	v.SetDefault("converter.binary", d.Converter.Binary)
	v.SetDefault("converter.image", d.Converter.Image)
	v.SetDefault("converter.timeout", d.Converter.Timeout.String())

	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("index.format", string(d.Index.Format))
	v.SetDefault("index.title", d.Index.Title)
	v.SetDefault("index.sources_path", d.Index.SourcesPath)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("watch.debounce", d.Watch.Debounce.String())
	v.SetDefault("watch.interval", d.Watch.Interval.String())

	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("notify.timeout", d.Notify.Timeout.String())
}

// loadConfig decodes v into a validated types.Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Show prints the configuration after merging defaults, the config file,
SLIDEVIEW_* environment variables, and flags. The output can be saved as
slideview.yaml (or .toml) and edited.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(viper.GetViper()); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return renderSettings(os.Stdout, viper.AllSettings(), format)
	},
}

// renderSettings writes settings as yaml, toml, or json.
func renderSettings(w io.Writer, settings map[string]any, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "":
		data, err = yaml.Marshal(settings)
	case "toml":
		data, err = toml.Marshal(settings)
	case "json":
		data, err = json.MarshalIndent(settings, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown format %q: use yaml, toml, or json", format)
	}
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func init() {
	configShowCmd.Flags().String("format", "yaml", "output format: yaml, toml, or json")

	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
