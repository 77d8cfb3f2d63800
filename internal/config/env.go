package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/local/pagesampler/internal/domain"
	"github.com/local/pagesampler/internal/imagerender"
	"github.com/local/pagesampler/internal/output"
	"github.com/local/pagesampler/internal/selection"
)

// envPrefix namespaces the sampler's own variables. Logging, Axiom, Redis
// and AWS settings keep their conventional names.
const envPrefix = "PAGESAMPLER_"

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Pretty     bool   `yaml:"pretty"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool          `yaml:"send"`
	APIKey        string        `yaml:"api_key"`
	OrgID         string        `yaml:"org_id"`
	Dataset       string        `yaml:"dataset"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// SamplerConfig holds the batch settings exposed on the command line.
type SamplerConfig struct {
	Pages            int    `yaml:"pages"`
	Filter           string `yaml:"filter"`
	Suffix           string `yaml:"suffix"`
	DPI              int    `yaml:"dpi"`
	Compress         int    `yaml:"compress"`
	Height           int    `yaml:"height"`
	IncludeFirstPage bool   `yaml:"include_first_page"`
	FirstPageSlots   string `yaml:"first_page_slots"`
	Threads          int    `yaml:"threads"`
	Grouping         string `yaml:"grouping"`
	Seed             int64  `yaml:"seed"`
	Color            string `yaml:"color"`
	Resample         string `yaml:"resample"`
	ProgressEvery    int    `yaml:"progress_every"`
}

// MetricsConfig defines where metrics are exposed.
type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Textfile string `yaml:"textfile"`
}

// RedisConfig enables the optional run status hash.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

// S3Config is used when the output folder is an s3:// URL.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Axiom   AxiomConfig   `yaml:"axiom"`
	Sampler SamplerConfig `yaml:"sampler"`
	Metrics MetricsConfig `yaml:"metrics"`
	Redis   RedisConfig   `yaml:"redis"`
	S3      S3Config      `yaml:"s3"`
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pagesampler",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Sampler = SamplerConfig{
		Pages:            parseInt(getEnv(envPrefix+"PAGES", "6"), 6),
		Filter:           getEnv(envPrefix+"FILTER", "*.pdf"),
		Suffix:           getEnv(envPrefix+"SUFFIX", "lg"),
		DPI:              parseInt(getEnv(envPrefix+"DPI", "300"), imagerender.DefaultDPI),
		Compress:         parseInt(getEnv(envPrefix+"COMPRESS", "80"), imagerender.DefaultQuality),
		Height:           parseInt(getEnv(envPrefix+"HEIGHT", "800"), imagerender.DefaultHeight),
		IncludeFirstPage: parseBool(getEnv(envPrefix+"INCLUDE_FIRST_PAGE", "true")),
		FirstPageSlots:   getEnv(envPrefix+"FIRST_PAGE_SLOTS", selection.SlotsAdditional.String()),
		Threads:          parseInt(getEnv(envPrefix+"THREADS", "8"), 8),
		Grouping:         getEnv(envPrefix+"GROUPING", string(output.GroupByPrefix)),
		Seed:             parseInt64(getEnv(envPrefix+"SEED", "0"), 0),
		Color:            getEnv(envPrefix+"COLOR", string(imagerender.ColorRGB)),
		Resample:         getEnv(envPrefix+"RESAMPLE", string(imagerender.FilterLanczos)),
		ProgressEvery:    parseInt(getEnv(envPrefix+"PROGRESS_EVERY", "10"), 10),
	}

	cfg.Metrics = MetricsConfig{
		Addr:     getEnv(envPrefix+"METRICS_ADDR", ""),
		Textfile: getEnv(envPrefix+"METRICS_TEXTFILE", ""),
	}

	cfg.Redis = RedisConfig{
		URL:       getEnv("REDIS_URL", ""),
		StatusTTL: parseDuration(getEnv(envPrefix+"STATUS_TTL", "168h"), 7*24*time.Hour),
	}

	cfg.S3 = S3Config{
		Region:    getEnv("AWS_REGION", ""),
		Endpoint:  getEnv(envPrefix+"S3_ENDPOINT", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		PathStyle: parseBool(getEnv(envPrefix+"S3_PATH_STYLE", "false")),
	}

	return cfg
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.IOError{Path: path, Reason: "read config", Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &domain.ConfigError{Field: "config", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return nil
}

// Normalize clamps render settings into their supported ranges.
func (c *Config) Normalize() {
	ro := c.Sampler.RenderOptions()
	c.Sampler.DPI = ro.DPI
	c.Sampler.Height = ro.Height
	c.Sampler.Compress = ro.Quality
	if c.Sampler.Filter == "" {
		c.Sampler.Filter = "*.pdf"
	}
	if c.Sampler.ProgressEvery <= 0 {
		c.Sampler.ProgressEvery = 10
	}
}

// Validate rejects settings that cannot be clamped into something sensible.
func (c Config) Validate() error {
	s := c.Sampler
	if s.Pages < 1 {
		return &domain.ConfigError{Field: "pages", Message: fmt.Sprintf("must be at least 1, got %d", s.Pages)}
	}
	if s.Threads < 1 {
		return &domain.ConfigError{Field: "threads", Message: fmt.Sprintf("must be at least 1, got %d", s.Threads)}
	}
	if strings.ContainsAny(s.Suffix, `/\`) {
		return &domain.ConfigError{Field: "suffix", Message: "must not contain path separators"}
	}
	if _, err := selection.ParseSlots(s.FirstPageSlots); err != nil {
		return &domain.ConfigError{Field: "first-page-slots", Message: err.Error()}
	}
	if _, err := output.ParseGrouping(s.Grouping); err != nil {
		return &domain.ConfigError{Field: "grouping", Message: err.Error()}
	}
	if _, err := imagerender.ParseColorMode(s.Color); err != nil {
		return &domain.ConfigError{Field: "color", Message: err.Error()}
	}
	if _, err := imagerender.ParseFilter(s.Resample); err != nil {
		return &domain.ConfigError{Field: "resample", Message: err.Error()}
	}
	return nil
}

// RenderOptions converts the sampler settings; unparsable enums fall back to
// defaults, Validate reports them.
func (s SamplerConfig) RenderOptions() imagerender.Options {
	color, _ := imagerender.ParseColorMode(s.Color)
	filter, _ := imagerender.ParseFilter(s.Resample)
	o := imagerender.Options{
		DPI:     s.DPI,
		Height:  s.Height,
		Quality: s.Compress,
		Color:   color,
		Filter:  filter,
	}
	return o.Normalize()
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
