package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "taskboard.db"
	DefaultAPIURL         = "http://localhost:3001"
	DefaultListen         = ":3001"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Detail       string `toml:"detail"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	Edit         string `toml:"edit"`
	Search       string `toml:"search"`
	Category     string `toml:"category"`
	HideDone     string `toml:"hide_done"`
	ClearFilters string `toml:"clear_filters"`
	AddCategory  string `toml:"add_category"`
	Refresh      string `toml:"refresh"`
	Copy         string `toml:"copy"`
}

type Server struct {
	Listen         string   `toml:"listen"`
	DBPath         string   `toml:"db_path"`
	SeedCategories []string `toml:"seed_categories"`
}

type Config struct {
	APIURL          string `toml:"api_url"`
	LogPath         string `toml:"log_path"`
	LogLevel        string `toml:"log_level"`
	BreakerFailures int    `toml:"breaker_failures"`
	DefaultFilter   string `toml:"default_filter"`
	Server          Server `toml:"server"`
	Keys            Keymap `toml:"keys"`
}

// ResolveConfigPath returns $TASKBOARD_CONFIG when set, otherwise
// config.toml under the user config directory.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("TASKBOARD_CONFIG")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, "taskboard", DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := Default(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.fillDefaults(filepath.Dir(path))
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides file values with TASKBOARD_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_API_URL")); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_LOG_PATH")); v != "" {
		c.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_LISTEN")); v != "" {
		c.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_DB_PATH")); v != "" {
		c.Server.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBOARD_BREAKER_FAILURES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.BreakerFailures = n
		}
	}
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) fillDefaults(dir string) {
	def := Default(dir)
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.DefaultFilter == "" {
		c.DefaultFilter = def.DefaultFilter
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = def.Server.DBPath
	}
	if c.Server.SeedCategories == nil {
		c.Server.SeedCategories = def.Server.SeedCategories
	}
	c.Keys.fillFrom(def.Keys)
}

func (k *Keymap) fillFrom(def Keymap) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&k.Quit, def.Quit)
	fill(&k.Add, def.Add)
	fill(&k.Up, def.Up)
	fill(&k.Down, def.Down)
	fill(&k.Toggle, def.Toggle)
	fill(&k.Delete, def.Delete)
	fill(&k.Detail, def.Detail)
	fill(&k.Confirm, def.Confirm)
	fill(&k.Cancel, def.Cancel)
	fill(&k.Edit, def.Edit)
	fill(&k.Search, def.Search)
	fill(&k.Category, def.Category)
	fill(&k.HideDone, def.HideDone)
	fill(&k.ClearFilters, def.ClearFilters)
	fill(&k.AddCategory, def.AddCategory)
	fill(&k.Refresh, def.Refresh)
	fill(&k.Copy, def.Copy)
}

// Default returns the configuration written on first launch. dir anchors the
// log file and the development database.
func Default(dir string) Config {
	return Config{
		APIURL:        DefaultAPIURL,
		LogPath:       filepath.Join(dir, "taskboard.log"),
		LogLevel:      "info",
		DefaultFilter: "all",
		Server: Server{
			Listen:         DefaultListen,
			DBPath:         filepath.Join(dir, DefaultDBName),
			SeedCategories: []string{"Personal", "Work", "Shopping"},
		},
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Detail:       "enter",
			Confirm:      "enter",
			Cancel:       "esc",
			Edit:         "e",
			Search:       "/",
			Category:     "c",
			HideDone:     "h",
			ClearFilters: "x",
			AddCategory:  "C",
			Refresh:      "R",
			Copy:         "y",
		},
	}
}
