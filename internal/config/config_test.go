package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// isolate points HOME at an empty directory so ~/.pdfedit.yaml is not read
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	return tmpDir
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		OutputDir:       t.TempDir(),
		LogLevel:        "info",
		LogFormat:       "console",
		RenderScale:     1.5,
		ViewportWidth:   800,
		ViewportHeight:  600,
		CompressLevel:   "medium",
		WatermarkMargin: 50,
		TextTileSize:    150,
		ImageTileSize:   250,
		StrokeSize:      8,
		Watch:           WatchConfig{Tool: "compress"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "." {
		t.Errorf("expected OutputDir = ., got %s", cfg.OutputDir)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("expected info/console logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.RenderScale != 1.5 {
		t.Errorf("expected RenderScale = 1.5, got %v", cfg.RenderScale)
	}
	if cfg.CompressLevel != "medium" {
		t.Errorf("expected CompressLevel = medium, got %s", cfg.CompressLevel)
	}
	if cfg.WatermarkMargin != 50 || cfg.TextTileSize != 150 || cfg.ImageTileSize != 250 {
		t.Errorf("unexpected watermark layout %v/%v/%v", cfg.WatermarkMargin, cfg.TextTileSize, cfg.ImageTileSize)
	}
	if cfg.Watch.Tool != "compress" || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected watch defaults %+v", cfg.Watch)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("PDFEDIT_LOG_LEVEL", "DEBUG")
	t.Setenv("PDFEDIT_RENDER_SCALE", "2.5")
	t.Setenv("PDFEDIT_COMPRESS_LEVEL", "high")
	t.Setenv("PDFEDIT_WATCH_DEBOUNCE", "2s")
	t.Setenv("PDFEDIT_UNIDOC_API_KEY", "secret-key-1234")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel = debug, got %s", cfg.LogLevel)
	}
	if cfg.RenderScale != 2.5 {
		t.Errorf("expected RenderScale = 2.5, got %v", cfg.RenderScale)
	}
	if cfg.CompressLevel != "high" {
		t.Errorf("expected CompressLevel = high, got %s", cfg.CompressLevel)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected Debounce = 2s, got %s", cfg.Watch.Debounce)
	}
	if cfg.UnidocAPIKey != "secret-key-1234" {
		t.Errorf("expected API key from environment, got %q", cfg.UnidocAPIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := isolate(t)
	configFile := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
output-dir: ` + tmpDir + `
log-level: warn
log-format: json
stroke-size: 4
watch-input-dir: ` + filepath.Join(tmpDir, "in") + `
watch-tool: rotate
watch-workers: 3
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configFile, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != tmpDir {
		t.Errorf("expected OutputDir = %s, got %s", tmpDir, cfg.OutputDir)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "json" {
		t.Errorf("expected warn/json, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.StrokeSize != 4 {
		t.Errorf("expected StrokeSize = 4, got %v", cfg.StrokeSize)
	}
	if cfg.Watch.Tool != "rotate" || cfg.Watch.Workers != 3 {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PDFEDIT_RENDER_SCALE", "2")
	t.Setenv("PDFEDIT_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("render-scale", 1, "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--render-scale=3"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RenderScale != 3 {
		t.Errorf("expected flag to win, RenderScale = %v", cfg.RenderScale)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("unset flag should not override the environment, LogLevel = %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "output-dir"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log-level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"zero scale", func(c *Config) { c.RenderScale = 0 }, "render-scale"},
		{"bad viewport", func(c *Config) { c.ViewportHeight = 0 }, "viewport"},
		{"bad level", func(c *Config) { c.CompressLevel = "max" }, "compress-level"},
		{"zero tile", func(c *Config) { c.TextTileSize = 0 }, "text-tile-size"},
		{"tiny tile", func(c *Config) { c.ImageTileSize = 0.01 }, "image-tile-size"},
		{"negative stroke", func(c *Config) { c.StrokeSize = -1 }, "stroke-size"},
		{"unknown watch tool", func(c *Config) { c.Watch.Tool = "protect" }, "watch-tool"},
		{"merge watch tool", func(c *Config) { c.Watch.Tool = "merge" }, "merge"},
		{"request overrides tool", func(c *Config) { c.Watch.Tool = ""; c.Watch.Request = "req.yaml" }, ""},
		{"negative workers", func(c *Config) { c.Watch.Workers = -2 }, "watch-workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want one mentioning %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidate_NormalizesCase(t *testing.T) {
	cfg := validConfig(t)
	cfg.LogLevel = "WARN"
	cfg.LogFormat = "JSON"
	cfg.CompressLevel = "High"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "json" || cfg.CompressLevel != "high" {
		t.Errorf("got %s/%s/%s", cfg.LogLevel, cfg.LogFormat, cfg.CompressLevel)
	}
}

func TestValidate_ExpandsHome(t *testing.T) {
	home := isolate(t)
	cfg := validConfig(t)
	cfg.OutputDir = "~/out"
	cfg.Watch.InputDir = "~/in"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.OutputDir != filepath.Join(home, "out") || cfg.Watch.InputDir != filepath.Join(home, "in") {
		t.Errorf("got %s and %s", cfg.OutputDir, cfg.Watch.InputDir)
	}
}

func TestValidateWatch(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.ValidateWatch(); err == nil {
		t.Error("missing input dir should fail")
	}

	cfg.Watch.InputDir = cfg.OutputDir
	if err := cfg.ValidateWatch(); err == nil {
		t.Error("output defaulting to the input dir should fail")
	}

	cfg.Watch.InputDir = t.TempDir()
	if err := cfg.ValidateWatch(); err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.OutputDir != cfg.OutputDir {
		t.Errorf("watch output should default to output-dir, got %s", cfg.Watch.OutputDir)
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := validConfig(t)
	sc := cfg.SessionConfig(nil)
	if sc.RenderScale != 1.5 || sc.StrokeSize != 8 || sc.WatermarkMargin != 50 {
		t.Errorf("session config = %+v", sc)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != "info" || lc.Format != "console" {
		t.Errorf("logger config = %+v", lc)
	}
}

func TestString_RedactsKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.UnidocAPIKey = "abcdefgh12345678"
	s := cfg.String()
	if strings.Contains(s, "abcdefgh") {
		t.Error("String() leaks the API key")
	}
	if !strings.Contains(s, "***5678") {
		t.Errorf("String() should show the key suffix:\n%s", s)
	}
}
