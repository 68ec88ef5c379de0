// Package config manages YAML-based configuration and command line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/CageChen/syntaxia/internal/cache"
	"github.com/CageChen/syntaxia/internal/classify"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/highlight"
	"github.com/CageChen/syntaxia/internal/logging"
	"github.com/CageChen/syntaxia/internal/render"
	"github.com/CageChen/syntaxia/internal/tree"
)

// ByteSize is a size in bytes. In YAML it is written either as an integer or
// as a human readable string such as "10 MiB".
type ByteSize int64

// UnmarshalYAML accepts integers and humanized sizes.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(v)
	return nil
}

// MarshalYAML writes the size in the largest IEC unit that divides it.
func (b ByteSize) MarshalYAML() (any, error) {
	return b.String(), nil
}

var sizeUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

func (b ByteSize) String() string {
	v, i := int64(b), 0
	for v != 0 && v%1024 == 0 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%d %s", v, sizeUnits[i])
}

// Config holds all configuration options for syntaxia
type Config struct {
	// Root is the repository directory. With GitRef set it is the git
	// repository the ref is read from.
	Root   string        `yaml:"root"`
	GitRef string        `yaml:"git_ref,omitempty"`
	S3     *fs.S3Options `yaml:"s3,omitempty"`

	Port  int    `yaml:"port"`
	Theme string `yaml:"theme"`
	Watch bool   `yaml:"watch"`
	Open  bool   `yaml:"open"`

	ShowHidden         bool     `yaml:"show_hidden"`
	RespectGitignore   bool     `yaml:"respect_gitignore"`
	Exclude            []string `yaml:"exclude"`
	MarkdownExtensions []string `yaml:"markdown_extensions"`

	MaxFileSize       ByteSize      `yaml:"max_file_size"`
	MaxHighlightBytes ByteSize      `yaml:"max_highlight_bytes"`
	CacheEntries      int           `yaml:"cache_entries"`
	RenderTimeout     time.Duration `yaml:"render_timeout"`
	LinkBase          string        `yaml:"link_base"`

	Log     logging.Config `yaml:"log"`
	Metrics bool           `yaml:"metrics"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Root:               ".",
		Port:               8080,
		Theme:              highlight.DefaultStyle,
		Watch:              true,
		RespectGitignore:   true,
		Exclude:            []string{"node_modules", ".git", ".svn"},
		MarkdownExtensions: append([]string(nil), classify.DefaultMarkdownExtensions...),
		MaxFileSize:        classify.DefaultMaxFileSize,
		MaxHighlightBytes:  highlight.DefaultMaxBytes,
		CacheEntries:       cache.DefaultMaxEntries,
		RenderTimeout:      10 * time.Second,
		LinkBase:           "/view",
		Log:                logging.Config{Level: "info", Format: "json"},
		Metrics:            true,
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/syntaxia"
	}
	return filepath.Join(home, ".config", "syntaxia")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// localConfigFile is looked up in the working directory when no global
// config exists.
const localConfigFile = "syntaxia.yaml"

// Load reads the configuration file. An explicit path must exist and parse;
// otherwise ~/.config/syntaxia/config.yaml and then ./syntaxia.yaml are tried
// and a broken or missing file leaves the defaults in place.
func Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	var cfgPath string
	if explicit != "" {
		cfgPath = explicit
	} else {
		// Try ~/.config/syntaxia/config.yaml first
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else if _, err := os.Stat(localConfigFile); err == nil {
			cfgPath = localConfigFile
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && explicit != "" {
			// Only return error if user explicitly specified config file
			return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg.configPath = cfgPath
	} else {
		// Set default config path for saving
		cfg.configPath = GetConfigPath()
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Flag names registered by BindFlags.
const (
	FlagRoot              = "root"
	FlagGitRef            = "git-ref"
	FlagS3Bucket          = "s3-bucket"
	FlagS3Prefix          = "s3-prefix"
	FlagS3Region          = "s3-region"
	FlagS3Endpoint        = "s3-endpoint"
	FlagPort              = "port"
	FlagTheme             = "theme"
	FlagWatch             = "watch"
	FlagOpen              = "open"
	FlagShowHidden        = "show-hidden"
	FlagRespectGitignore  = "respect-gitignore"
	FlagExclude           = "exclude"
	FlagMaxFileSize       = "max-file-size"
	FlagMaxHighlightBytes = "max-highlight-bytes"
	FlagCacheEntries      = "cache-entries"
	FlagRenderTimeout     = "render-timeout"
	FlagLinkBase          = "link-base"
	FlagLogLevel          = "log-level"
	FlagLogFormat         = "log-format"
	FlagMetrics           = "metrics"
)

// BindFlags registers the command line overrides on flags. Defaults shown in
// help text are the built-in defaults; only flags set explicitly override the
// config file.
func BindFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.StringP(FlagRoot, "r", d.Root, "Repository root directory")
	flags.String(FlagGitRef, "", "Serve files at this git ref instead of the working tree")
	flags.String(FlagS3Bucket, "", "Serve files from this S3 bucket")
	flags.String(FlagS3Prefix, "", "Key prefix inside the S3 bucket")
	flags.String(FlagS3Region, "", "S3 region")
	flags.String(FlagS3Endpoint, "", "Endpoint of an S3-compatible store")
	flags.IntP(FlagPort, "p", d.Port, "HTTP server port")
	flags.String(FlagTheme, d.Theme, "Highlight theme (any chroma style)")
	flags.Bool(FlagWatch, d.Watch, "Watch the root for changes")
	flags.Bool(FlagOpen, d.Open, "Open browser on startup")
	flags.Bool(FlagShowHidden, d.ShowHidden, "List dot files")
	flags.Bool(FlagRespectGitignore, d.RespectGitignore, "Hide paths ignored by a project's .gitignore")
	flags.StringSlice(FlagExclude, nil, "Glob patterns to hide (replaces the configured list)")
	flags.String(FlagMaxFileSize, d.MaxFileSize.String(), "Files above this size are not previewed")
	flags.String(FlagMaxHighlightBytes, d.MaxHighlightBytes.String(), "Files above this size are not highlighted")
	flags.Int(FlagCacheEntries, d.CacheEntries, "Rendered documents kept in memory")
	flags.Duration(FlagRenderTimeout, d.RenderTimeout, "Maximum time a request waits for a render")
	flags.String(FlagLinkBase, d.LinkBase, "URL prefix for relative links in Markdown")
	flags.String(FlagLogLevel, d.Log.Level, "Log level (debug, info, warn, error)")
	flags.String(FlagLogFormat, d.Log.Format, "Log format (json, console)")
	flags.Bool(FlagMetrics, d.Metrics, "Serve Prometheus metrics at /metrics")
}

// ApplyFlags copies every explicitly set flag into c.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var errList []error
	set := func(name string, apply func() error) {
		if f := flags.Lookup(name); f == nil || !f.Changed {
			return
		}
		if err := apply(); err != nil {
			errList = append(errList, fmt.Errorf("--%s: %w", name, err))
		}
	}
	set(FlagRoot, func() (err error) { c.Root, err = flags.GetString(FlagRoot); return })
	set(FlagGitRef, func() (err error) { c.GitRef, err = flags.GetString(FlagGitRef); return })
	set(FlagS3Bucket, func() (err error) { c.s3().Bucket, err = flags.GetString(FlagS3Bucket); return })
	set(FlagS3Prefix, func() (err error) { c.s3().Prefix, err = flags.GetString(FlagS3Prefix); return })
	set(FlagS3Region, func() (err error) { c.s3().Region, err = flags.GetString(FlagS3Region); return })
	set(FlagS3Endpoint, func() (err error) { c.s3().Endpoint, err = flags.GetString(FlagS3Endpoint); return })
	set(FlagPort, func() (err error) { c.Port, err = flags.GetInt(FlagPort); return })
	set(FlagTheme, func() (err error) { c.Theme, err = flags.GetString(FlagTheme); return })
	set(FlagWatch, func() (err error) { c.Watch, err = flags.GetBool(FlagWatch); return })
	set(FlagOpen, func() (err error) { c.Open, err = flags.GetBool(FlagOpen); return })
	set(FlagShowHidden, func() (err error) { c.ShowHidden, err = flags.GetBool(FlagShowHidden); return })
	set(FlagRespectGitignore, func() (err error) { c.RespectGitignore, err = flags.GetBool(FlagRespectGitignore); return })
	set(FlagExclude, func() (err error) { c.Exclude, err = flags.GetStringSlice(FlagExclude); return })
	set(FlagMaxFileSize, func() error { return parseSize(flags, FlagMaxFileSize, &c.MaxFileSize) })
	set(FlagMaxHighlightBytes, func() error { return parseSize(flags, FlagMaxHighlightBytes, &c.MaxHighlightBytes) })
	set(FlagCacheEntries, func() (err error) { c.CacheEntries, err = flags.GetInt(FlagCacheEntries); return })
	set(FlagRenderTimeout, func() (err error) { c.RenderTimeout, err = flags.GetDuration(FlagRenderTimeout); return })
	set(FlagLinkBase, func() (err error) { c.LinkBase, err = flags.GetString(FlagLinkBase); return })
	set(FlagLogLevel, func() (err error) { c.Log.Level, err = flags.GetString(FlagLogLevel); return })
	set(FlagLogFormat, func() (err error) { c.Log.Format, err = flags.GetString(FlagLogFormat); return })
	set(FlagMetrics, func() (err error) { c.Metrics, err = flags.GetBool(FlagMetrics); return })

	return errors.Join(errList...)
}

func (c *Config) s3() *fs.S3Options {
	if c.S3 == nil {
		c.S3 = &fs.S3Options{}
	}
	return c.S3
}

func parseSize(flags *pflag.FlagSet, name string, dst *ByteSize) error {
	s, err := flags.GetString(name)
	if err != nil {
		return err
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	*dst = ByteSize(v)
	return nil
}

// Validate reports every setting that cannot be served.
func (c *Config) Validate() error {
	var errList []error
	bad := func(format string, args ...any) {
		errList = append(errList, fmt.Errorf(format, args...))
	}

	switch {
	case c.S3 != nil:
		if c.S3.Bucket == "" {
			bad("s3.bucket is required when s3 is configured")
		}
		if c.GitRef != "" {
			bad("git_ref and s3 cannot be combined")
		}
	case c.Root == "":
		bad("root is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		bad("port %d out of range", c.Port)
	}
	if !highlight.HasStyle(c.Theme) {
		bad("unknown theme %q", c.Theme)
	}
	for _, pattern := range c.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			bad("exclude pattern %q: %v", pattern, err)
		}
	}
	for _, ext := range c.MarkdownExtensions {
		if ext == "" || ext == "." || strings.Contains(ext, "/") {
			bad("invalid markdown extension %q", ext)
		}
	}
	if c.MaxFileSize <= 0 {
		bad("max_file_size must be positive")
	}
	if c.MaxHighlightBytes <= 0 {
		bad("max_highlight_bytes must be positive")
	}
	if c.CacheEntries <= 0 {
		bad("cache_entries must be positive")
	}
	if c.RenderTimeout < 0 {
		bad("render_timeout must not be negative")
	}
	if c.LinkBase != "" && !strings.HasPrefix(c.LinkBase, "/") {
		bad("link_base %q must start with /", c.LinkBase)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		bad("unknown log format %q", c.Log.Format)
	}
	return errors.Join(errList...)
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	// Ensure config directory exists
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// AbsRoot returns Root as an absolute path.
func (c *Config) AbsRoot() string {
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return c.Root
	}
	return abs
}

// StorageOptions selects the storage backend.
func (c *Config) StorageOptions() fs.Options {
	opts := fs.Options{GitRef: c.GitRef, S3: c.S3}
	if c.S3 == nil {
		opts.Root = c.AbsRoot()
	}
	return opts
}

// RenderOptions configures the rendering pipeline.
func (c *Config) RenderOptions(logger *zap.Logger) render.Options {
	return render.Options{
		Tree: tree.Options{
			ShowHidden:       c.ShowHidden,
			RespectGitignore: c.RespectGitignore,
			Exclude:          c.Exclude,
		},
		Classify: classify.Options{
			MaxFileSize:        int64(c.MaxFileSize),
			MarkdownExtensions: c.MarkdownExtensions,
		},
		Cache: cache.Options{
			MaxEntries:    c.CacheEntries,
			RenderTimeout: c.RenderTimeout,
		},
		MaxHighlightBytes: int64(c.MaxHighlightBytes),
		LinkBase:          c.LinkBase,
		Logger:            logger,
	}
}
