// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the slideview CLI.
// slideview keeps a directory of PDFs in step with a directory of
// presentations and publishes an index of the converted documents.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the slideview CLI.
var rootCmd = &cobra.Command{
	Use:   "slideview",
	Short: "Convert presentations to PDF and publish an index",
	Long: `slideview keeps a directory of generated PDFs synchronized with a
directory of presentation files. Each pass converts new and updated sources,
removes PDFs whose source disappeared, records the result in a manifest
(docs/pdf-list.json by default), and regenerates the published index.

Run "slideview sync" for a single pass or "slideview watch" to keep the
outputs current as sources change.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./slideview.yaml or ~/.config/slideview/config.yaml)")
	flags.String("source-dir", "", "directory holding presentation sources")
	flags.String("artifact-dir", "", "directory receiving generated PDFs")
	flags.String("manifest", "", "manifest file path")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		"source_dir":    "source-dir",
		"artifact_dir":  "artifact-dir",
		"manifest_path": "manifest",
		"log.level":     "log-level",
		"log.format":    "log-format",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading config:", err)
		os.Exit(1)
	}
}

// setupViper registers defaults, the config file search path, and the
// SLIDEVIEW_ environment prefix on v, then reads the config file if found.
func setupViper(v *viper.Viper, cfgFile string) error {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("slideview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "slideview"))
		}
	}

	v.SetEnvPrefix("SLIDEVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
