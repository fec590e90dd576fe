package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration derived from a yaml file plus
// environment overrides.
type Config struct {
	DBPath        string
	HTTPPort      string
	WatchDir      string
	EnableWatcher bool
	StrictConfig  bool

	WorkerCount       int
	IdleThresholdMin  int
	ProcessingVersion string
	FetchAll          bool
	FetchWindowDays   int

	CacheTTLSec     int
	CacheMaxEntries int

	ScheduleEnabled bool
	ScheduleHourUTC int

	WebhookURL string

	LLM LLMConfig
}

// LLMConfig captures the time-estimation model settings.
type LLMConfig struct {
	Model          string
	BaseURL        string
	APIKey         string
	TimeoutSec     int
	PromptVersion  string
	CostPerRequest float64
	AllowedDomains []string
}

type fileConfig struct {
	DBPath           string        `json:"db_path" yaml:"db_path"`
	HTTPPort         string        `json:"http_port" yaml:"http_port"`
	WatchDir         string        `json:"watch_dir" yaml:"watch_dir"`
	WorkerCount      *int          `json:"worker_count" yaml:"worker_count"`
	IdleThresholdMin *int          `json:"idle_threshold_min" yaml:"idle_threshold_min"`
	FetchAll         *bool         `json:"fetch_all" yaml:"fetch_all"`
	FetchWindowDays  *int          `json:"fetch_window_days" yaml:"fetch_window_days"`
	CacheTTLSec      *int          `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	ScheduleEnabled  *bool         `json:"schedule_enabled" yaml:"schedule_enabled"`
	ScheduleHourUTC  *int          `json:"schedule_hour_utc" yaml:"schedule_hour_utc"`
	WebhookURL       string        `json:"webhook_url" yaml:"webhook_url"`
	LLM              llmFileConfig `json:"llm" yaml:"llm"`
}

type llmFileConfig struct {
	Model          string   `json:"model" yaml:"model"`
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	TimeoutSec     *int     `json:"timeout_sec" yaml:"timeout_sec"`
	PromptVersion  string   `json:"prompt_version" yaml:"prompt_version"`
	CostPerRequest *float64 `json:"cost_per_request" yaml:"cost_per_request"`
	AllowedDomains []string `json:"allowed_domains" yaml:"allowed_domains"`
}

const (
	defaultPort          = ":8000"
	defaultDBFile        = "analytics.db"
	defaultWatchDir      = "runtime/transcripts"
	defaultWorkerCount   = 4
	defaultIdleThreshold = 10
	defaultFetchWindow   = 1
	defaultCacheTTL      = 300
	defaultCacheEntries  = 1000
	defaultScheduleHour  = 2
)

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:          "gpt-4o-mini",
		BaseURL:        "https://api.openai.com",
		TimeoutSec:     120,
		PromptVersion:  "v1",
		CostPerRequest: 0.001,
		AllowedDomains: []string{"wikipedia.org", "supreme.justia.com", "law.cornell.edu"},
	}
}

// Load reads configuration from an optional yaml file and environment
// variables, applying sane defaults.
func Load() (Config, error) {
	LoadDotEnv(".env")

	cfg := Config{
		WorkerCount:       defaultWorkerCount,
		IdleThresholdMin:  defaultIdleThreshold,
		ProcessingVersion: "1.0",
		FetchWindowDays:   defaultFetchWindow,
		CacheTTLSec:       defaultCacheTTL,
		CacheMaxEntries:   defaultCacheEntries,
		ScheduleEnabled:   true,
		ScheduleHourUTC:   defaultScheduleHour,
		EnableWatcher:     parseBoolEnvDefault("ENABLE_WATCHER", true),
		StrictConfig:      parseBoolEnv("STRICT_CONFIG"),
		LLM:               defaultLLMConfig(),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}
	cfg = applyFileOverrides(cfg, fileCfg)

	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), cfg.DBPath, defaultDBFile)
	cfg.WatchDir = firstNonEmpty(os.Getenv("WATCH_DIR"), cfg.WatchDir, defaultWatchDir)
	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), cfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if v, ok, err := parseIntEnv("WORKER_COUNT"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid WORKER_COUNT: %w", err)
		}
		log.Printf("invalid WORKER_COUNT: %v (using default)", err)
	} else if ok && v > 0 {
		cfg.WorkerCount = v
	}
	if v, ok, err := parseIntEnv("IDLE_THRESHOLD_MIN"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid IDLE_THRESHOLD_MIN: %w", err)
		}
		log.Printf("invalid IDLE_THRESHOLD_MIN: %v (using default)", err)
	} else if ok && v > 0 {
		cfg.IdleThresholdMin = v
	}
	if v, ok, err := parseIntEnv("FETCH_WINDOW_DAYS"); err == nil && ok && v >= 0 {
		cfg.FetchWindowDays = v
	}
	if v := os.Getenv("FETCH_ALL"); strings.TrimSpace(v) != "" {
		cfg.FetchAll = parseBoolEnv("FETCH_ALL")
	}
	if v, ok, err := parseIntEnv("CACHE_TTL_SEC"); err == nil && ok && v > 0 {
		cfg.CacheTTLSec = v
	}
	if v := os.Getenv("SCHEDULE_ENABLED"); strings.TrimSpace(v) != "" {
		cfg.ScheduleEnabled = parseBoolEnv("SCHEDULE_ENABLED")
	}
	if v, ok, err := parseIntEnv("SCHEDULE_HOUR_UTC"); err == nil && ok && v >= 0 && v <= 23 {
		cfg.ScheduleHourUTC = v
	}
	if v := strings.TrimSpace(os.Getenv("PROCESSING_VERSION")); v != "" {
		cfg.ProcessingVersion = v
	}
	cfg.WebhookURL = firstNonEmpty(os.Getenv("WEBHOOK_URL"), cfg.WebhookURL)

	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	cfg.LLM.BaseURL = firstNonEmpty(
		os.Getenv("LLM_BASE_URL"),
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENAI_API_BASE"),
		cfg.LLM.BaseURL,
	)
	cfg.LLM.APIKey = firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("OPENAI_API_KEY"))
	if v, ok, err := parseIntEnv("LLM_TIMEOUT_SEC"); err == nil && ok && v > 0 {
		cfg.LLM.TimeoutSec = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_PROMPT_VERSION")); v != "" {
		cfg.LLM.PromptVersion = v
	}
	if v, ok, err := parseFloatEnv("LLM_COST_PER_REQUEST"); err == nil && ok && v >= 0 {
		cfg.LLM.CostPerRequest = v
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}
	return cfg, nil
}

func applyFileOverrides(cfg Config, file fileConfig) Config {
	if strings.TrimSpace(file.DBPath) != "" {
		cfg.DBPath = file.DBPath
	}
	if strings.TrimSpace(file.HTTPPort) != "" {
		cfg.HTTPPort = file.HTTPPort
	}
	if strings.TrimSpace(file.WatchDir) != "" {
		cfg.WatchDir = file.WatchDir
	}
	if file.WorkerCount != nil && *file.WorkerCount > 0 {
		cfg.WorkerCount = *file.WorkerCount
	}
	if file.IdleThresholdMin != nil && *file.IdleThresholdMin > 0 {
		cfg.IdleThresholdMin = *file.IdleThresholdMin
	}
	if file.FetchAll != nil {
		cfg.FetchAll = *file.FetchAll
	}
	if file.FetchWindowDays != nil && *file.FetchWindowDays >= 0 {
		cfg.FetchWindowDays = *file.FetchWindowDays
	}
	if file.CacheTTLSec != nil && *file.CacheTTLSec > 0 {
		cfg.CacheTTLSec = *file.CacheTTLSec
	}
	if file.ScheduleEnabled != nil {
		cfg.ScheduleEnabled = *file.ScheduleEnabled
	}
	if file.ScheduleHourUTC != nil && *file.ScheduleHourUTC >= 0 && *file.ScheduleHourUTC <= 23 {
		cfg.ScheduleHourUTC = *file.ScheduleHourUTC
	}
	if strings.TrimSpace(file.WebhookURL) != "" {
		cfg.WebhookURL = strings.TrimSpace(file.WebhookURL)
	}
	if strings.TrimSpace(file.LLM.Model) != "" {
		cfg.LLM.Model = strings.TrimSpace(file.LLM.Model)
	}
	if strings.TrimSpace(file.LLM.BaseURL) != "" {
		cfg.LLM.BaseURL = strings.TrimSpace(file.LLM.BaseURL)
	}
	if file.LLM.TimeoutSec != nil && *file.LLM.TimeoutSec > 0 {
		cfg.LLM.TimeoutSec = *file.LLM.TimeoutSec
	}
	if strings.TrimSpace(file.LLM.PromptVersion) != "" {
		cfg.LLM.PromptVersion = strings.TrimSpace(file.LLM.PromptVersion)
	}
	if file.LLM.CostPerRequest != nil && *file.LLM.CostPerRequest >= 0 {
		cfg.LLM.CostPerRequest = *file.LLM.CostPerRequest
	}
	if len(file.LLM.AllowedDomains) > 0 {
		cfg.LLM.AllowedDomains = file.LLM.AllowedDomains
	}
	return cfg
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	if cfg.IdleThresholdMin <= 0 {
		return errors.New("idle threshold minutes must be positive")
	}
	if cfg.WorkerCount <= 0 {
		return errors.New("worker count must be positive")
	}
	if cfg.LLM.TimeoutSec <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return errors.New("llm model is required")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return false
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}
