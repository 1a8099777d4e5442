package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Server     ServerConfig     `mapstructure:"server"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Log        LogConfig        `mapstructure:"log"`
}

type LLMConfig struct {
	Provider string            `mapstructure:"provider"`
	Model    string            `mapstructure:"model"`
	BaseURL  string            `mapstructure:"base_url"`
	APIKey   string            `mapstructure:"api_key"`
	Headers  map[string]string `mapstructure:"headers"`
	QAPrompt string            `mapstructure:"qa_prompt"`
}

type EmbeddingsConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	UserAgent    string        `mapstructure:"user_agent"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SyncConfig holds the static sync knobs. The enabled flag and WebDAV
// credentials live in the database so the HTTP API can change them at
// runtime; see db.SyncSettings.
type SyncConfig struct {
	Debounce     time.Duration `mapstructure:"debounce"`
	Interval     time.Duration `mapstructure:"interval"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	defaultDataDir := filepath.Join(homeDir, ".markhub")

	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("embeddings.provider", "openai")
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("fetch.timeout", 30*time.Second)
	viper.SetDefault("fetch.max_body_bytes", int64(10*1024*1024))
	viper.SetDefault("fetch.user_agent", "markhub/1.0")
	viper.SetDefault("server.addr", ":8787")
	viper.SetDefault("sync.debounce", 5*time.Second)
	viper.SetDefault("sync.interval", 5*time.Minute)
	viper.SetDefault("sync.initial_delay", time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 30)

	// Environment variable overrides
	viper.SetEnvPrefix("MARKHUB")
	viper.AutomaticEnv()
	viper.BindEnv("data_dir", "MARKHUB_DATA_DIR")
	viper.BindEnv("llm.provider", "MARKHUB_LLM_PROVIDER")
	viper.BindEnv("llm.model", "MARKHUB_LLM_MODEL")
	viper.BindEnv("llm.base_url", "MARKHUB_LLM_BASE_URL")
	viper.BindEnv("llm.api_key", "MARKHUB_LLM_API_KEY")
	viper.BindEnv("embeddings.api_key", "MARKHUB_EMBEDDINGS_API_KEY")
	viper.BindEnv("server.addr", "MARKHUB_SERVER_ADDR")

	// Config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultDataDir)

	// Read config file if exists (ignore error if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "markhub.db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "markhub.log")
}
