// Package config loads the yaml profile for both server and CLI modes and
// merges flag overrides on top. Environment variables (optionally from a
// .env file) override file values for deployment settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// server
	Listen         string `yaml:"listen"`
	BaseURL        string `yaml:"base_url"`
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
	NavTimeoutSec  int    `yaml:"nav_timeout_sec"`
	BrowserTabs    int    `yaml:"browser_tabs"`
	WaitAfterMs    int    `yaml:"wait_after_ms"`
	CacheTTLSec    int    `yaml:"cache_ttl_sec"`

	// download
	Output         string `yaml:"output"`
	ImageWorkers   int    `yaml:"image_workers"`
	ChapterWorkers int    `yaml:"chapter_workers"`
	KeepFolders    bool   `yaml:"keep_folders"`
	SkipBroken     bool   `yaml:"skip_broken"`

	DefaultURL   string `yaml:"default_url"`
	DefaultRange string `yaml:"default_range"`
	DefaultList  string `yaml:"default_list"`

	// fetch identity
	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	Debug bool `yaml:"debug"`
}

// Options carry CLI flag values into LoadMerged. Zero values leave the file
// value in place.
type Options struct {
	IgnoreConfig bool
	Debug        bool

	Listen      string
	BaseURL     string
	BrowserTabs int

	Output         string
	ImageWorkers   int
	ChapterWorkers int
	KeepFolders    bool
	SkipBroken     bool

	DefaultURL   string
	DefaultRange string
	DefaultList  string

	Cookie     string
	CookieFile string
	UserAgent  string
}

func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8080",
		BaseURL:        "https://azoramoon.com",
		HTTPTimeoutSec: 25,
		NavTimeoutSec:  60,
		BrowserTabs:    2,
		WaitAfterMs:    1000,
		CacheTTLSec:    180,
		Output:         ".",
		ImageWorkers:   5,
		ChapterWorkers: 2,
	}
}

func (c *Config) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }
func (c *Config) NavTimeout() time.Duration  { return time.Duration(c.NavTimeoutSec) * time.Second }
func (c *Config) WaitAfter() time.Duration   { return time.Duration(c.WaitAfterMs) * time.Millisecond }
func (c *Config) CacheTTL() time.Duration    { return time.Duration(c.CacheTTLSec) * time.Second }

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadMerged resolves the active profile, then layers environment variables
// and flag overrides on top. Returns the config and the path it came from.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		applyEnv(cfg)
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		applyEnv(cfg)
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	applyEnv(cfg)
	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("MANHWAD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MANHWAD_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("MANHWAD_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("MANHWAD_COOKIE"); v != "" {
		c.Cookie = v
	}
	if v := os.Getenv("MANHWAD_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheTTLSec = n
		}
	}
	if v := os.Getenv("MANHWAD_BROWSER_TABS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BrowserTabs = n
		}
	}
	if v := os.Getenv("MANHWAD_DEBUG"); v == "1" || v == "true" {
		c.Debug = true
	}
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.BrowserTabs != 0 {
		c.BrowserTabs = o.BrowserTabs
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.KeepFolders {
		c.KeepFolders = true
	}
	if o.SkipBroken {
		c.SkipBroken = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.HTTPTimeoutSec <= 0 {
		c.HTTPTimeoutSec = def.HTTPTimeoutSec
	}
	if c.NavTimeoutSec <= 0 {
		c.NavTimeoutSec = def.NavTimeoutSec
	}
	if c.BrowserTabs <= 0 {
		c.BrowserTabs = def.BrowserTabs
	}
	if c.WaitAfterMs < 0 {
		c.WaitAfterMs = def.WaitAfterMs
	}
	if c.CacheTTLSec < 0 {
		c.CacheTTLSec = 0
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.ImageWorkers <= 0 {
		c.ImageWorkers = def.ImageWorkers
	}
	if c.ChapterWorkers <= 0 {
		c.ChapterWorkers = def.ChapterWorkers
	}
}

func (c *Config) Print() {
	fmt.Printf(" -listen: %s\n", c.Listen)
	fmt.Printf(" -base_url: %s\n", c.BaseURL)
	fmt.Printf(" -http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Printf(" -nav_timeout_sec: %d\n", c.NavTimeoutSec)
	fmt.Printf(" -browser_tabs: %d\n", c.BrowserTabs)
	fmt.Printf(" -cache_ttl_sec: %d\n", c.CacheTTLSec)
	fmt.Printf(" -image_workers: %d\n", c.ImageWorkers)
	fmt.Printf(" -chapter_workers: %d\n", c.ChapterWorkers)
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -default_url: %s\n", c.DefaultURL)
	}
	if c.DefaultRange != "" {
		fmt.Printf(" -default_range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		fmt.Printf(" -default_list: %s\n", c.DefaultList)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.KeepFolders {
		fmt.Printf(" -keep_folders: %t\n", c.KeepFolders)
	}
	if c.SkipBroken {
		fmt.Printf(" -skip_broken: %t\n", c.SkipBroken)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
}
