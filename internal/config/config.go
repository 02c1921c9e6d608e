// Package config loads Marvin's settings from an optional YAML file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App describes how to launch one named application per OS.
type App struct {
	Linux   []string `yaml:"linux"`
	Darwin  []string `yaml:"darwin"`
	Windows []string `yaml:"windows"`
}

// Command returns the argv for the running OS, if any.
func (a App) Command() []string {
	switch runtime.GOOS {
	case "darwin":
		return a.Darwin
	case "windows":
		return a.Windows
	default:
		return a.Linux
	}
}

type Browser struct {
	// ExecPath is the Chrome binary. Empty means chromedp's lookup.
	ExecPath   string `yaml:"exec_path"`
	ProfileDir string `yaml:"profile_dir"`
	Headless   bool   `yaml:"headless"`
}

type Voice struct {
	WakeWord     string        `yaml:"wake_word"`
	Language     string        `yaml:"language"`
	WhisperModel string        `yaml:"whisper_model"`
	BeepSound    string        `yaml:"beep_sound"`
	DuckFactor   float64       `yaml:"duck_factor"`
	DuckFade     time.Duration `yaml:"duck_fade"`
}

type Spotify struct {
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	RedirectURI  string `yaml:"-"`
	RefreshToken string `yaml:"-"`
}

// Configured reports whether enough credentials exist to try the Web API.
func (s Spotify) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type Config struct {
	Voice      Voice          `yaml:"voice"`
	Browser    Browser        `yaml:"browser"`
	Apps       map[string]App `yaml:"apps"`
	AlarmSound string         `yaml:"alarm_sound"`
	Timeout    time.Duration  `yaml:"timeout"`

	OpenAIKey string  `yaml:"-"`
	Spotify   Spotify `yaml:"-"`
}

func Default() Config {
	return Config{
		Voice: Voice{
			WakeWord:     "marvin",
			Language:     "pt",
			WhisperModel: "third_party/whisper.cpp/models/ggml-medium.bin",
			BeepSound:    "beep.mp3",
			DuckFactor:   0.3,
			DuckFade:     300 * time.Millisecond,
		},
		Browser: Browser{
			ProfileDir: "chrome-profile",
		},
		Apps: map[string]App{
			"bloco de notas": {
				Linux:   []string{"gedit"},
				Darwin:  []string{"open", "-a", "TextEdit"},
				Windows: []string{"notepad.exe"},
			},
			"calculadora": {
				Linux:   []string{"gnome-calculator"},
				Darwin:  []string{"open", "-a", "Calculator"},
				Windows: []string{"calc.exe"},
			},
			"spotify": {
				Linux:   []string{"spotify"},
				Darwin:  []string{"open", "-a", "Spotify"},
				Windows: []string{"spotify.exe"},
			},
		},
		AlarmSound: "alarm.mp3",
		Timeout:    30 * time.Second,
	}
}

// Load reads the env file and then the YAML file over the defaults. Both
// files are optional; a missing one is not an error.
func Load(envFile, path string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.merge(raw); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Spotify = Spotify{
		ClientID:     os.Getenv("SPOTIFY_ID"),
		ClientSecret: os.Getenv("SPOTIFY_SECRET"),
		RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
		RefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
	}
	return cfg, nil
}

// merge decodes raw over cfg. Configured apps are added to the defaults
// rather than replacing the whole table.
func (cfg *Config) merge(raw []byte) error {
	defaults := cfg.Apps
	cfg.Apps = nil
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	apps := make(map[string]App, len(defaults)+len(cfg.Apps))
	for k, v := range defaults {
		apps[k] = v
	}
	for k, v := range cfg.Apps {
		apps[k] = v
	}
	cfg.Apps = apps
	return nil
}
