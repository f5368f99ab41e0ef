// Package config holds all handsfree configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Workspace  string           `yaml:"workspace"`
	LLM        LLMConfig        `yaml:"llm"`
	Browser    BrowserConfig    `yaml:"browser"`
	Cache      CacheConfig      `yaml:"cache"`
	Controller ControllerConfig `yaml:"controller"`
	Logging    LoggingConfig    `yaml:"logging"`
	Safety     SafetyConfig     `yaml:"safety"`
}

// LLMConfig configures the external natural-language interpreter.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
}

// TimeoutDuration parses Timeout, defaulting to 10s.
func (c LLMConfig) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// BrowserConfig configures both the resolver browser and the persistent
// web-executor browser.
type BrowserConfig struct {
	Headless             bool   `yaml:"headless"`
	NavigationTimeoutMs  int    `yaml:"navigation_timeout_ms"`
	ResolverProfileDir   string `yaml:"resolver_profile_dir"`
	ExecutorProfileDir   string `yaml:"executor_profile_dir"`
	ViewportWidth        int    `yaml:"viewport_width"`
	ViewportHeight       int    `yaml:"viewport_height"`
	EnableFormFilling    bool   `yaml:"enable_form_filling"`
	SearchEngineURL      string `yaml:"search_engine_url"`
	ScreenshotDir        string `yaml:"screenshot_dir"`
}

func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c BrowserConfig) Width() int {
	if c.ViewportWidth <= 0 {
		return 1280
	}
	return c.ViewportWidth
}

func (c BrowserConfig) Height() int {
	if c.ViewportHeight <= 0 {
		return 800
	}
	return c.ViewportHeight
}

// CacheConfig configures the URL-resolution cache.
type CacheConfig struct {
	MaxSize int `yaml:"max_size"`
	TTLSecs int `yaml:"ttl_secs"`
}

// ControllerConfig configures the command queue and per-job timeout.
type ControllerConfig struct {
	QueueCapacity    int `yaml:"queue_capacity"`
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	WatchdogSecs     int `yaml:"watchdog_secs"`
}

func (c ControllerConfig) CommandTimeout() time.Duration {
	if c.CommandTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode bool `yaml:"debug_mode"`
}

// SafetyConfig controls the sensitive-command confirmation gate.
type SafetyConfig struct {
	SensitivePattern     string   `yaml:"sensitive_pattern"`
	AlwaysConfirmIntents []string `yaml:"always_confirm_intents"`
}

// DefaultConfig returns the defaults a fresh install runs with.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434/api/generate",
			Model:       "local-command-interpreter",
			Timeout:     "8s",
			Temperature: 0.0,
		},
		Browser: BrowserConfig{
			Headless:            true,
			NavigationTimeoutMs: 15000,
			ResolverProfileDir:  "user_data/resolver_profile",
			ExecutorProfileDir:  "user_data/executor_profile",
			ViewportWidth:       1280,
			ViewportHeight:      800,
			EnableFormFilling:   false,
			SearchEngineURL:     "https://duckduckgo.com/?q={query}",
			ScreenshotDir:       "user_data/error_screenshots",
		},
		Cache: CacheConfig{
			MaxSize: 256,
			TTLSecs: 600,
		},
		Controller: ControllerConfig{
			QueueCapacity:    64,
			CommandTimeoutMs: 12000,
			WatchdogSecs:     5,
		},
		Logging: LoggingConfig{
			DebugMode: false,
		},
		Safety: SafetyConfig{
			SensitivePattern:     `\b(delete|remove|erase|trash|format|wipe|rm|shutdown|restart|kill|terminate|uninstall)\b`,
			AlwaysConfirmIntents: []string{"web_send_message"},
		},
	}
}

// Load reads a YAML config file, falling back to defaults for anything the
// file omits or that is absent entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save atomically writes the config as YAML (write-temp-then-rename, the
// same pattern used for the gesture persistence documents).
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return AtomicWriteFile(path, data)
}

// AtomicWriteFile writes data to path by writing to a temp file in the same
// directory and renaming over the destination, so a crash mid-write never
// leaves a half-written document. Shared by the gesture persistence layer.
func AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// applyEnvOverrides lets select fields be overridden from the environment,
// via HANDSFREE_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HANDSFREE_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("HANDSFREE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("HANDSFREE_HEADLESS"); v == "false" {
		cfg.Browser.Headless = false
	}
	if v := os.Getenv("HANDSFREE_DEBUG"); v == "true" {
		cfg.Logging.DebugMode = true
	}
}
