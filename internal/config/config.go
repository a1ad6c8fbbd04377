// Package config loads the YAML configuration file and environment
// overrides, and converts them into the option structs each component
// takes at construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/trendwatch/internal/cluster"
	"github.com/abelbrown/trendwatch/internal/fetch"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/trend"
	"github.com/abelbrown/trendwatch/internal/validate"
	"github.com/abelbrown/trendwatch/internal/vectorize"
)

// Validation errors returned by Config.Validate.
var (
	ErrInvalidMinArticles = errors.New("config: min_article_count must be at least 1")
	ErrInvalidWindow      = errors.New("config: time_window_hours must be positive")
	ErrInvalidEps         = errors.New("config: clustering.eps must be in (0, 2]")
	ErrInvalidMinSamples  = errors.New("config: clustering.min_samples must be at least 1")
	ErrInvalidMaxKeywords = errors.New("config: keyword_extraction.max_keywords must be at least 1")
	ErrInvalidThreshold   = errors.New("config: cross_reference_threshold must not be negative")
	ErrInvalidBackend     = errors.New("config: fingerprints.backend must be none, memory, sqlite or redis")
	ErrInvalidFallback    = errors.New("config: clustering.fallback must be greedy or components")
	ErrInvalidLogLevel    = errors.New("config: logging.level must be debug, info, warn or error")
	ErrSourceMissingURL   = errors.New("config: news source needs a name and url")
	ErrSourceReliability  = errors.New("config: news source reliability_score must be within [0,1]")
)

// Config is the persistent application configuration
type Config struct {
	NewsSources  NewsSourcesConfig  `yaml:"news_sources"`
	Detection    DetectionConfig    `yaml:"trend_detection"`
	Validation   ValidationConfig   `yaml:"validation"`
	FactCheck    FactCheckConfig    `yaml:"fact_check"`
	Fingerprints FingerprintsConfig `yaml:"fingerprints"`
	Redis        RedisConfig        `yaml:"redis"`
	Preferences  PreferencesConfig  `yaml:"user_preferences"`
	Fetch        FetchConfig        `yaml:"fetch"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// NewsSourcesConfig lists the feeds to poll.
type NewsSourcesConfig struct {
	Sources []model.NewsSource `yaml:"sources"`
}

// DetectionConfig holds trend detection settings
type DetectionConfig struct {
	MinArticleCount   int               `yaml:"min_article_count"`
	TimeWindowHours   int               `yaml:"time_window_hours"`
	Clustering        ClusteringConfig  `yaml:"clustering"`
	KeywordExtraction KeywordExtraction `yaml:"keyword_extraction"`
}

// ClusteringConfig holds density clustering and vectorizer settings
type ClusteringConfig struct {
	Eps         float64 `yaml:"eps"`
	MinSamples  int     `yaml:"min_samples"`
	MaxFeatures int     `yaml:"max_features"`
	MinDF       int     `yaml:"min_df"`
	Fallback    string  `yaml:"fallback"` // "greedy" or "components"
}

// KeywordExtraction caps trend keywords
type KeywordExtraction struct {
	MaxKeywords int `yaml:"max_keywords"`
}

// ValidationConfig holds validation pipeline settings
type ValidationConfig struct {
	CrossReferenceThreshold int                    `yaml:"cross_reference_threshold"`
	FactCheckEnabled        bool                   `yaml:"fact_check_enabled"`
	DuplicateDetection      bool                   `yaml:"duplicate_detection"`
	ContentFiltering        ContentFilteringConfig `yaml:"content_filtering"`
	Concurrency             int                    `yaml:"concurrency"`
	TimeoutSec              int                    `yaml:"timeout_sec"`
}

// ContentFilteringConfig lists blocked keywords and flagged topics
type ContentFilteringConfig struct {
	BlockedKeywords []string `yaml:"blocked_keywords"`
	SensitiveTopics []string `yaml:"sensitive_topics"`
}

// FactCheckConfig configures the remote rating service. Without an API key
// the offline heuristic is used.
type FactCheckConfig struct {
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint"`
}

// FingerprintsConfig selects where accepted trend fingerprints are kept
type FingerprintsConfig struct {
	Backend  string `yaml:"backend"` // none, memory, sqlite, redis
	TTLHours int    `yaml:"ttl_hours"`
}

// RedisConfig holds the Redis connection
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password,omitempty"`
}

// PreferencesConfig narrows what a run reports
type PreferencesConfig struct {
	MinReliabilityScore float64  `yaml:"min_reliability_score"`
	MaxAgeHours         int      `yaml:"max_age_hours"`
	TopicsOfInterest    []string `yaml:"topics_of_interest"`
}

// FetchConfig tunes feed retrieval
type FetchConfig struct {
	Concurrency int    `yaml:"concurrency"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	UserAgent   string `yaml:"user_agent"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Dir    string `yaml:"dir"`
	Events string `yaml:"events"` // JSONL event log; empty disables it
}

// Fingerprint backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		NewsSources: NewsSourcesConfig{Sources: fetch.DefaultSources()},
		Detection: DetectionConfig{
			MinArticleCount: 3,
			TimeWindowHours: 24,
			Clustering: ClusteringConfig{
				Eps:         0.3,
				MinSamples:  2,
				MaxFeatures: 1000,
				MinDF:       2,
				Fallback:    string(cluster.FallbackGreedy),
			},
			KeywordExtraction: KeywordExtraction{MaxKeywords: 10},
		},
		Validation: ValidationConfig{
			CrossReferenceThreshold: 2,
			FactCheckEnabled:        true,
			DuplicateDetection:      true,
			ContentFiltering: ContentFilteringConfig{
				BlockedKeywords: []string{},
				SensitiveTopics: []string{},
			},
			Concurrency: 4,
			TimeoutSec:  10,
		},
		FactCheck:    FactCheckConfig{Endpoint: "https://api.newsguardtech.com/v1/rate"},
		Fingerprints: FingerprintsConfig{Backend: BackendNone, TTLHours: 72},
		Redis:        RedisConfig{Host: "localhost", Port: 6379},
		Preferences: PreferencesConfig{
			MinReliabilityScore: 0,
			MaxAgeHours:         24,
			TopicsOfInterest:    []string{},
		},
		Fetch: FetchConfig{
			Concurrency: 5,
			TimeoutSec:  30,
			UserAgent:   fetch.DefaultUserAgent,
		},
		Storage: StorageConfig{Path: filepath.Join(dir, "trendwatch.db")},
		Logging: LoggingConfig{
			Level:  "info",
			Dir:    filepath.Join(dir, "logs"),
			Events: filepath.Join(dir, "trendwatch.events.jsonl"),
		},
	}
}

// DataDir is ~/.trendwatch.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trendwatch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads the config at path (ConfigPath when empty) over the defaults
// and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Save writes config to path (ConfigPath when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

// ApplyEnv overrides settings from environment variables looked up with
// getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv("NEWSGUARD_API_KEY"); key != "" {
		c.FactCheck.APIKey = key
	}
	if ep := getenv("NEWSGUARD_ENDPOINT"); ep != "" {
		c.FactCheck.Endpoint = ep
	}
	if host := getenv("REDIS_HOST"); host != "" {
		c.Redis.Host = host
		c.Fingerprints.Backend = BackendRedis
		if port, err := strconv.Atoi(getenv("REDIS_PORT")); err == nil {
			c.Redis.Port = port
		}
		if db, err := strconv.Atoi(getenv("REDIS_DB")); err == nil {
			c.Redis.DB = db
		}
		if pw := getenv("REDIS_PASSWORD"); pw != "" {
			c.Redis.Password = pw
		}
	}
	if topics := getenv("USER_TOPICS_OF_INTEREST"); topics != "" {
		c.Preferences.TopicsOfInterest = splitList(topics)
	}
	if db := getenv("TRENDWATCH_DB"); db != "" {
		c.Storage.Path = db
	}
	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// LoadKeysFromFile reads "export KEY=value" lines from a shell script
// (like keys.sh) and applies them as environment overrides.
func (c *Config) LoadKeysFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	c.ApplyEnv(func(k string) string { return vars[k] })
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks ranges and enumerations. It returns the first problem.
func (c *Config) Validate() error {
	d := c.Detection
	switch {
	case d.MinArticleCount < 1:
		return ErrInvalidMinArticles
	case d.TimeWindowHours <= 0:
		return ErrInvalidWindow
	case d.Clustering.Eps <= 0 || d.Clustering.Eps > 2:
		return ErrInvalidEps
	case d.Clustering.MinSamples < 1:
		return ErrInvalidMinSamples
	case !cluster.FallbackMode(d.Clustering.Fallback).Valid():
		return ErrInvalidFallback
	case d.KeywordExtraction.MaxKeywords < 1:
		return ErrInvalidMaxKeywords
	case c.Validation.CrossReferenceThreshold < 0:
		return ErrInvalidThreshold
	}

	switch c.Fingerprints.Backend {
	case BackendNone, BackendMemory, BackendSQLite, BackendRedis:
	default:
		return ErrInvalidBackend
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	for _, s := range c.NewsSources.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("%w: %q", ErrSourceMissingURL, s.Name)
		}
		if s.ReliabilityScore < 0 || s.ReliabilityScore > 1 {
			return fmt.Errorf("%w: %q", ErrSourceReliability, s.Name)
		}
	}
	return nil
}

// TrendOptions converts detection settings for trend.NewDetector.
func (c *Config) TrendOptions() trend.Options {
	d := c.Detection
	return trend.Options{
		MinArticles: d.MinArticleCount,
		WindowHours: d.TimeWindowHours,
		MaxKeywords: d.KeywordExtraction.MaxKeywords,
		Cluster: cluster.Options{
			Eps:            d.Clustering.Eps,
			MinSamples:     d.Clustering.MinSamples,
			MinClusterSize: d.MinArticleCount,
			Fallback:       cluster.FallbackMode(d.Clustering.Fallback),
			Vectorize: vectorize.Options{
				MaxFeatures: d.Clustering.MaxFeatures,
				MinDF:       d.Clustering.MinDF,
				MaxNGram:    2,
			},
		},
	}
}

// ValidateOptions converts validation settings for validate.New.
func (c *Config) ValidateOptions() validate.Config {
	v := c.Validation
	return validate.Config{
		CrossReferenceThreshold: v.CrossReferenceThreshold,
		FactCheckEnabled:        v.FactCheckEnabled,
		DuplicateDetection:      v.DuplicateDetection,
		BlockedKeywords:         v.ContentFiltering.BlockedKeywords,
		SensitiveTopics:         v.ContentFiltering.SensitiveTopics,
		Concurrency:             v.Concurrency,
		Timeout:                 time.Duration(v.TimeoutSec) * time.Second,
	}
}

// FingerprintTTL is how long an accepted fingerprint blocks repeats.
func (c *Config) FingerprintTTL() time.Duration {
	return time.Duration(c.Fingerprints.TTLHours) * time.Hour
}

// RedisAddr is host:port for go-redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ActiveSources returns pointers to the configured sources that are active.
// Articles share these pointers.
func (c *Config) ActiveSources() []*model.NewsSource {
	var out []*model.NewsSource
	for i := range c.NewsSources.Sources {
		if c.NewsSources.Sources[i].IsActive {
			out = append(out, &c.NewsSources.Sources[i])
		}
	}
	return out
}
