// Package config holds textkit runtime configuration. Values come from
// an optional YAML/JSON config file, environment variables, and built-in
// defaults, in that priority order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ServerPort int    `yaml:"server_port" json:"server_port"`
	ServerHost string `yaml:"server_host" json:"server_host"`

	// Data directory: chat history JSON files, the lead job database,
	// and downloaded lead exports all live under it.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LLM settings
	LLMBaseURL string `yaml:"llm_base_url" json:"llm_base_url"`
	LLMAPIKey  string `yaml:"llm_api_key" json:"llm_api_key"`
	LLMModel   string `yaml:"llm_model" json:"llm_model"`
	LLMTimeout int    `yaml:"llm_timeout_seconds" json:"llm_timeout_seconds"`

	// Lead extraction
	ExtractConcurrency int `yaml:"extract_concurrency" json:"extract_concurrency"`
	MaxUploadMB        int `yaml:"max_upload_mb" json:"max_upload_mb"`

	// Response cache for LLM calls
	CacheMaxEntries int `yaml:"cache_max_entries" json:"cache_max_entries"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// Rate limiting on LLM-backed endpoints (requests per minute per IP)
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	// Converter behavior: retain freeform lines under "other" when the
	// input also contains structure. Off by default.
	ConvertKeepOther bool `yaml:"convert_keep_other" json:"convert_keep_other"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogJSON  bool   `yaml:"log_json" json:"log_json"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultDataDir := filepath.Join(homeDir, ".textkit")

	// The original lead extractor read its key from OPENROUTER_API_KEY;
	// keep honoring it when the textkit variable is unset.
	apiKey := getEnv("TEXTKIT_LLM_API_KEY", "")
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}

	return &Config{
		ServerPort:         getEnvInt("TEXTKIT_PORT", 8321),
		ServerHost:         getEnv("TEXTKIT_HOST", "localhost"),
		DataDir:            getEnv("TEXTKIT_DATA_DIR", defaultDataDir),
		LLMBaseURL:         getEnv("TEXTKIT_LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:          apiKey,
		LLMModel:           getEnv("TEXTKIT_LLM_MODEL", "google/gemini-2.0-flash-001"),
		LLMTimeout:         getEnvInt("TEXTKIT_LLM_TIMEOUT", 120),
		ExtractConcurrency: getEnvInt("TEXTKIT_EXTRACT_CONCURRENCY", 4),
		MaxUploadMB:        getEnvInt("TEXTKIT_MAX_UPLOAD_MB", 16),
		CacheMaxEntries:    getEnvInt("TEXTKIT_CACHE_MAX_ENTRIES", 256),
		CacheTTLSeconds:    getEnvInt("TEXTKIT_CACHE_TTL", 3600),
		RateLimitPerMinute: getEnvInt("TEXTKIT_RATE_LIMIT", 60),
		ConvertKeepOther:   getEnvBool("TEXTKIT_CONVERT_KEEP_OTHER", false),
		LogLevel:           getEnv("TEXTKIT_LOG_LEVEL", "info"),
		LogJSON:            getEnvBool("TEXTKIT_LOG_JSON", false),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// Validate validates the configuration and creates the data directory
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.ExtractConcurrency < 1 {
		return fmt.Errorf("extract_concurrency must be at least 1, got %d", c.ExtractConcurrency)
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// ChatsDir returns the directory holding chat history files.
func (c *Config) ChatsDir() string {
	return filepath.Join(c.DataDir, "chats")
}

// LoadFromFile loads configuration from a YAML or JSON file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// LoadWithPriority loads config with priority: env > file > defaults
func LoadWithPriority(configPath string) (*Config, error) {
	var cfg *Config
	var err error

	if configPath != "" {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		homeDir, _ := os.UserHomeDir()
		candidates := []string{
			filepath.Join(homeDir, ".textkit", "config.yaml"),
			filepath.Join(homeDir, ".textkit", "config.yml"),
			filepath.Join(homeDir, ".textkit", "config.json"),
			"config.yaml",
			"config.yml",
			"config.json",
		}

		for _, path := range candidates {
			if _, err := os.Stat(path); err == nil {
				cfg, err = LoadFromFile(path)
				if err != nil {
					return nil, err
				}
				break
			}
		}

		if cfg == nil {
			cfg = LoadConfig()
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func (c *Config) applyDefaults() {
	homeDir, _ := os.UserHomeDir()

	if c.ServerPort == 0 {
		c.ServerPort = 8321
	}
	if c.ServerHost == "" {
		c.ServerHost = "localhost"
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(homeDir, ".textkit")
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLMModel == "" {
		c.LLMModel = "google/gemini-2.0-flash-001"
	}
	if c.LLMTimeout == 0 {
		c.LLMTimeout = 120
	}
	if c.ExtractConcurrency == 0 {
		c.ExtractConcurrency = 4
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 16
	}
	if c.CacheMaxEntries == 0 {
		c.CacheMaxEntries = 256
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnvOverrides overrides config with environment variables
func (c *Config) applyEnvOverrides() {
	if port := getEnvInt("TEXTKIT_PORT", 0); port != 0 {
		c.ServerPort = port
	}
	if host := getEnv("TEXTKIT_HOST", ""); host != "" {
		c.ServerHost = host
	}
	if dir := getEnv("TEXTKIT_DATA_DIR", ""); dir != "" {
		c.DataDir = dir
	}
	if url := getEnv("TEXTKIT_LLM_BASE_URL", ""); url != "" {
		c.LLMBaseURL = url
	}
	if key := getEnv("TEXTKIT_LLM_API_KEY", ""); key != "" {
		c.LLMAPIKey = key
	} else if key := os.Getenv("OPENROUTER_API_KEY"); key != "" && c.LLMAPIKey == "" {
		c.LLMAPIKey = key
	}
	if model := getEnv("TEXTKIT_LLM_MODEL", ""); model != "" {
		c.LLMModel = model
	}
	if timeout := getEnvInt("TEXTKIT_LLM_TIMEOUT", 0); timeout != 0 {
		c.LLMTimeout = timeout
	}
	if conc := getEnvInt("TEXTKIT_EXTRACT_CONCURRENCY", 0); conc != 0 {
		c.ExtractConcurrency = conc
	}
	if mb := getEnvInt("TEXTKIT_MAX_UPLOAD_MB", 0); mb != 0 {
		c.MaxUploadMB = mb
	}
	if entries := getEnvInt("TEXTKIT_CACHE_MAX_ENTRIES", 0); entries != 0 {
		c.CacheMaxEntries = entries
	}
	if ttl := getEnvInt("TEXTKIT_CACHE_TTL", 0); ttl != 0 {
		c.CacheTTLSeconds = ttl
	}
	if rate := getEnvInt("TEXTKIT_RATE_LIMIT", 0); rate != 0 {
		c.RateLimitPerMinute = rate
	}
	if keep := os.Getenv("TEXTKIT_CONVERT_KEEP_OTHER"); keep != "" {
		c.ConvertKeepOther = getEnvBool("TEXTKIT_CONVERT_KEEP_OTHER", false)
	}
	if level := getEnv("TEXTKIT_LOG_LEVEL", ""); level != "" {
		c.LogLevel = level
	}
	if jsonLog := os.Getenv("TEXTKIT_LOG_JSON"); jsonLog != "" {
		c.LogJSON = getEnvBool("TEXTKIT_LOG_JSON", false)
	}
}
