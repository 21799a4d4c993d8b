// Package config provides configuration management for pdfedit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platinummonkey/pdfedit/internal/compress"
	"github.com/platinummonkey/pdfedit/internal/engine"
	"github.com/platinummonkey/pdfedit/internal/logger"
	"github.com/platinummonkey/pdfedit/internal/watermark"
)

// EnvPrefix prefixes every environment variable, e.g. PDFEDIT_LOG_LEVEL
const EnvPrefix = "PDFEDIT"

// Config holds all configuration settings for pdfedit.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// OutputDir is where results are written when no explicit output path is given
	OutputDir string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is console or json
	LogFormat string

	// RenderScale is the pixels-per-point scale annotations are captured at
	RenderScale float64

	// ViewportWidth and ViewportHeight size fit-to-viewport previews in pixels
	ViewportWidth  int
	ViewportHeight int

	// CompressLevel is the default compression level (low, medium, high)
	CompressLevel string

	// Watermark layout
	WatermarkMargin float64
	TextTileSize    float64
	ImageTileSize   float64

	// StrokeSize is the default pen width in render pixels
	StrokeSize float64

	// UnidocAPIKey enables unipdf rendering (previews and to-images)
	UnidocAPIKey string

	Watch WatchConfig
}

// WatchConfig holds the hot-folder settings
type WatchConfig struct {
	InputDir  string
	OutputDir string

	// Tool is run on every new PDF unless Request is set
	Tool string

	// Request is a YAML request file; it overrides Tool
	Request string

	Debounce   time.Duration
	Workers    int
	HealthAddr string
	PIDFile    string
}

// Load reads configuration from multiple sources and returns a Config instance.
// Flags in flags (may be nil) are bound by name, so a flag must be called
// like its key, e.g. --render-scale.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".pdfedit")
			v.SetConfigType("yaml")
		}
	}

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	config := &Config{
		OutputDir:       v.GetString("output-dir"),
		LogLevel:        v.GetString("log-level"),
		LogFormat:       v.GetString("log-format"),
		RenderScale:     v.GetFloat64("render-scale"),
		ViewportWidth:   v.GetInt("viewport-width"),
		ViewportHeight:  v.GetInt("viewport-height"),
		CompressLevel:   v.GetString("compress-level"),
		WatermarkMargin: v.GetFloat64("watermark-margin"),
		TextTileSize:    v.GetFloat64("text-tile-size"),
		ImageTileSize:   v.GetFloat64("image-tile-size"),
		StrokeSize:      v.GetFloat64("stroke-size"),
		UnidocAPIKey:    v.GetString("unidoc-api-key"),
		Watch: WatchConfig{
			InputDir:   v.GetString("watch-input-dir"),
			OutputDir:  v.GetString("watch-output-dir"),
			Tool:       v.GetString("watch-tool"),
			Request:    v.GetString("watch-request"),
			Debounce:   v.GetDuration("watch-debounce"),
			Workers:    v.GetInt("watch-workers"),
			HealthAddr: v.GetString("watch-health-addr"),
			PIDFile:    v.GetString("watch-pid-file"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("output-dir", ".")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("render-scale", 1.5)
	v.SetDefault("viewport-width", 1024)
	v.SetDefault("viewport-height", 1366)
	v.SetDefault("compress-level", string(compress.LevelMedium))
	v.SetDefault("watermark-margin", watermark.DefaultMargin)
	v.SetDefault("text-tile-size", watermark.DefaultTextTile)
	v.SetDefault("image-tile-size", watermark.DefaultImageTile)
	v.SetDefault("stroke-size", 8.0)
	v.SetDefault("unidoc-api-key", "")

	v.SetDefault("watch-input-dir", "")
	v.SetDefault("watch-output-dir", "")
	v.SetDefault("watch-tool", string(engine.ToolCompress))
	v.SetDefault("watch-request", "")
	v.SetDefault("watch-debounce", 500*time.Millisecond)
	v.SetDefault("watch-workers", 0)
	v.SetDefault("watch-health-addr", "")
	v.SetDefault("watch-pid-file", "")
}

// Validate checks that the configuration is valid and internally consistent.
// Home directories are expanded and names lower-cased in place.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	var err error
	if c.OutputDir, err = expandHome(c.OutputDir); err != nil {
		return fmt.Errorf("failed to expand home directory in output-dir: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if !(c.RenderScale > 0) {
		return fmt.Errorf("render-scale must be positive, got %v", c.RenderScale)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}

	level, err := compress.ParseLevel(strings.ToLower(c.CompressLevel))
	if err != nil {
		return fmt.Errorf("invalid compress-level: %w", err)
	}
	c.CompressLevel = string(level)

	for name, val := range map[string]float64{
		"watermark-margin": c.WatermarkMargin,
		"stroke-size":      c.StrokeSize,
	} {
		if !(val > 0) {
			return fmt.Errorf("%s must be positive, got %v", name, val)
		}
	}
	for name, val := range map[string]float64{
		"text-tile-size":  c.TextTileSize,
		"image-tile-size": c.ImageTileSize,
	} {
		if !(val >= watermark.MinTileSize) {
			return fmt.Errorf("%s must be at least %v, got %v", name, watermark.MinTileSize, val)
		}
	}

	if err := c.Watch.validate(); err != nil {
		return err
	}
	return nil
}

func (w *WatchConfig) validate() error {
	var err error
	if w.InputDir, err = expandHome(w.InputDir); err != nil {
		return fmt.Errorf("failed to expand home directory in watch-input-dir: %w", err)
	}
	if w.OutputDir, err = expandHome(w.OutputDir); err != nil {
		return fmt.Errorf("failed to expand home directory in watch-output-dir: %w", err)
	}

	if w.Request == "" {
		tool, err := engine.ParseTool(w.Tool)
		if err != nil {
			return fmt.Errorf("invalid watch-tool: %w", err)
		}
		if tool == engine.ToolMerge {
			return fmt.Errorf("watch-tool cannot be merge")
		}
	}
	if w.Debounce < 0 {
		return fmt.Errorf("watch-debounce must be non-negative, got %s", w.Debounce)
	}
	if w.Workers < 0 {
		return fmt.Errorf("watch-workers must be non-negative, got %d", w.Workers)
	}
	return nil
}

// ValidateWatch checks the settings only the watch command needs
func (c *Config) ValidateWatch() error {
	if c.Watch.InputDir == "" {
		return fmt.Errorf("watch-input-dir is required")
	}
	if c.Watch.OutputDir == "" {
		c.Watch.OutputDir = c.OutputDir
	}
	in, _ := filepath.Abs(c.Watch.InputDir)
	out, _ := filepath.Abs(c.Watch.OutputDir)
	if in == out {
		return fmt.Errorf("watch-output-dir must differ from watch-input-dir")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// LoggerConfig returns the logger settings
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	return cfg
}

// SessionConfig returns the engine settings
func (c *Config) SessionConfig(log *logger.Logger) *engine.Config {
	return &engine.Config{
		RenderScale:     c.RenderScale,
		WatermarkMargin: c.WatermarkMargin,
		TextTileSize:    c.TextTileSize,
		ImageTileSize:   c.ImageTileSize,
		StrokeSize:      c.StrokeSize,
		Logger:          log,
	}
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	key := "not set"
	if c.UnidocAPIKey != "" {
		if len(c.UnidocAPIKey) > 8 {
			key = "***" + c.UnidocAPIKey[len(c.UnidocAPIKey)-4:]
		} else {
			key = "***"
		}
	}

	return fmt.Sprintf(`Configuration:
  OutputDir: %s
  LogLevel: %s
  LogFormat: %s
  RenderScale: %.2f
  Viewport: %dx%d
  CompressLevel: %s
  WatermarkMargin: %.1f
  TextTileSize: %.1f
  ImageTileSize: %.1f
  StrokeSize: %.1f
  UnidocAPIKey: %s
  Watch:
    InputDir: %s
    OutputDir: %s
    Tool: %s
    Request: %s
    Debounce: %s
    Workers: %d`,
		c.OutputDir,
		c.LogLevel,
		c.LogFormat,
		c.RenderScale,
		c.ViewportWidth, c.ViewportHeight,
		c.CompressLevel,
		c.WatermarkMargin,
		c.TextTileSize,
		c.ImageTileSize,
		c.StrokeSize,
		key,
		c.Watch.InputDir,
		c.Watch.OutputDir,
		c.Watch.Tool,
		c.Watch.Request,
		c.Watch.Debounce,
		c.Watch.Workers,
	)
}
