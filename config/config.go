package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds whiteboard configuration. Credentials are not part of it;
// they live in the settings store.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Kie    KieConfig    `toml:"kie"`
	R2     R2Config     `toml:"r2"`
	Canvas CanvasConfig `toml:"canvas"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig selects the settings backend.
type StoreConfig struct {
	Backend     string `toml:"backend"` // "sqlite", "postgres"
	Path        string `toml:"path"`
	DatabaseURL string `toml:"database_url"`
}

// KieConfig controls the generation client.
type KieConfig struct {
	BaseURL      string   `toml:"base_url"`
	PollInterval Duration `toml:"poll_interval"`
}

// R2Config overrides the R2 endpoint, e.g. for a local S3 emulator.
type R2Config struct {
	Endpoint string `toml:"endpoint"`
}

// CanvasConfig is the assumed screen size used to centre new nodes.
type CanvasConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// LogConfig controls the process log and the in-memory log sink.
type LogConfig struct {
	Level      string `toml:"level"` // "debug", "info", "error"
	JSON       bool   `toml:"json"`
	MaxEntries int    `toml:"max_entries"`
}

// Duration decodes TOML strings such as "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3000"},
		Store:  StoreConfig{Backend: "sqlite", Path: filepath.Join(ConfigDir(), "whiteboard.db")},
		Kie:    KieConfig{BaseURL: "https://api.kie.ai/api/v1/jobs", PollInterval: Duration{2 * time.Second}},
		Canvas: CanvasConfig{Width: 1440, Height: 900},
		Log:    LogConfig{Level: "info", MaxEntries: 1000},
	}
}

// ConfigDir returns the whiteboard config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "whiteboard")
}

// Path returns the config file location, honouring WHITEBOARD_CONFIG.
func Path() string {
	if p := os.Getenv("WHITEBOARD_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadEnv reads a .env file into the environment if one exists. Variables
// already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads the config file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("WHITEBOARD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
		cfg.Store.Backend = "postgres"
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
