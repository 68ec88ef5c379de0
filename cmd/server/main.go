// Package main is the entry point for the syntaxia server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CageChen/syntaxia/internal/config"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/logging"
	"github.com/CageChen/syntaxia/internal/render"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "syntaxia",
	Short: "Browse a directory of projects as rendered Markdown and highlighted code",
	Long: `syntaxia renders a tree of project directories into browsable content:
directory listings, Markdown documents with highlighted code fences, and
syntax-highlighted source files. Content is read from a local directory, a git
ref or an S3 bucket.

Configuration is read from --config, ~/.config/syntaxia/config.yaml or
./syntaxia.yaml, in that order. Flags override the file.`,
	SilenceUsage: true,
	// Running without a subcommand starts the server.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, renderCmd, cssCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flags, validates the result and
// initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

// newRenderer opens the configured storage backend and builds the pipeline.
func newRenderer(ctx context.Context, cfg *config.Config) (*render.Renderer, error) {
	fsys, err := fs.New(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return render.New(fsys, cfg.RenderOptions(logging.L()))
}
