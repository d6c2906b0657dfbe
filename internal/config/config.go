// Package config loads the attend configuration file and provides defaults
// for every recognized option. All options are static at process start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "300s" or "2s" parse.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every recognized option. Zero-valued fields are filled with
// defaults by Load.
type Config struct {
	// Model and credentials for the response collaborator.
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`

	// Audio capture.
	SampleRate   int      `yaml:"sample_rate"`
	Channels     int      `yaml:"channels"`
	ChunkSeconds Duration `yaml:"chunk_seconds"`

	// Transcript ring buffer.
	RetentionWindow    Duration `yaml:"retention_window"`
	ContextFragments   int      `yaml:"context_fragments"`
	MinTranscriptChars int      `yaml:"min_transcript_chars"`

	// Screen capture.
	ScreenInterval Duration `yaml:"screen_interval"`
	MinScreenChars int      `yaml:"min_screen_chars"`

	// External tool commands.
	WhisperCommand   string `yaml:"whisper_command"`
	WhisperModel     string `yaml:"whisper_model"`
	TesseractCommand string `yaml:"tesseract_command"`

	// Presentation.
	ToggleHotkey string `yaml:"toggle_hotkey"`
	StartVisible bool   `yaml:"start_visible"`

	// Daemon surfaces and paths.
	SocketPath string `yaml:"socket_path"`
	DBPath     string `yaml:"db_path"`
	LogFile    string `yaml:"log_file"`
	MCPAddr    string `yaml:"mcp_addr"`
}

// Dir returns the attend state directory (~/.attend).
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".attend")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns a Config with every option set to its default value.
func Default() Config {
	return Config{
		Model:              "gemini-2.0-flash",
		SampleRate:         16000,
		Channels:           1,
		ChunkSeconds:       Duration(5 * time.Second),
		RetentionWindow:    Duration(300 * time.Second),
		ContextFragments:   10,
		MinTranscriptChars: 5,
		ScreenInterval:     Duration(2 * time.Second),
		MinScreenChars:     10,
		WhisperCommand:     "whisper-cli",
		TesseractCommand:   "tesseract",
		ToggleHotkey:       "ctrl+alt+c",
		SocketPath:         filepath.Join(Dir(), "attendd.sock"),
		DBPath:             filepath.Join(Dir(), "attend.sqlite"),
		LogFile:            filepath.Join(Dir(), "attendd.log"),
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks the options a daemon cannot run without.
func (c Config) Validate() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("no api_keys configured")
	}
	for i, k := range c.APIKeys {
		if k == "" {
			return fmt.Errorf("api_keys[%d] is empty", i)
		}
	}
	if c.Model == "" {
		return fmt.Errorf("model is empty")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.ChunkSeconds.Std() <= 0 {
		return fmt.Errorf("chunk_seconds must be positive")
	}
	if c.RetentionWindow.Std() <= 0 {
		return fmt.Errorf("retention_window must be positive")
	}
	if c.ContextFragments <= 0 {
		return fmt.Errorf("context_fragments must be positive, got %d", c.ContextFragments)
	}
	if c.ScreenInterval.Std() <= 0 {
		return fmt.Errorf("screen_interval must be positive")
	}
	return nil
}
