package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Chunking   ChunkingConfig   `yaml:"chunking" mapstructure:"chunking"`
	Judge      JudgeConfig      `yaml:"judge" mapstructure:"judge"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Document   DocumentConfig   `yaml:"document" mapstructure:"document"`
	Framework  FrameworkConfig  `yaml:"framework" mapstructure:"framework"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// AnalysisConfig configures one document analysis. It is passed by value into
// the analyzer and never mutated during a run.
type AnalysisConfig struct {
	Framework         string        `yaml:"framework" mapstructure:"framework"`
	Preset            string        `yaml:"preset" mapstructure:"preset"`
	HighRiskThreshold float64       `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
	MinChunkLength    int           `yaml:"min_chunk_length" mapstructure:"min_chunk_length"`
	Progressive       bool          `yaml:"progressive" mapstructure:"progressive"`
	RAGArticles       int           `yaml:"rag_articles" mapstructure:"rag_articles"`
	MaxChunks         int           `yaml:"max_chunks" mapstructure:"max_chunks"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	ScoringWorkers    int           `yaml:"scoring_workers" mapstructure:"scoring_workers"`
	ChunkTimeout      time.Duration `yaml:"chunk_timeout" mapstructure:"chunk_timeout"`
	Reconcile         bool          `yaml:"reconcile" mapstructure:"reconcile"`
	DedupKeyLength    int           `yaml:"dedup_key_length" mapstructure:"dedup_key_length"`
	Weights           WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig holds the per-component risk score multipliers.
type WeightsConfig struct {
	Data             float64 `yaml:"data" mapstructure:"data"`
	Regulatory       float64 `yaml:"regulatory" mapstructure:"regulatory"`
	HighRiskPatterns float64 `yaml:"high_risk_patterns" mapstructure:"high_risk_patterns"`
	Priority         float64 `yaml:"priority" mapstructure:"priority"`
	PhraseBonus      float64 `yaml:"phrase_bonus" mapstructure:"phrase_bonus"`
	ContextBonus     float64 `yaml:"context_bonus" mapstructure:"context_bonus"`
	NegationPenalty  float64 `yaml:"negation_penalty" mapstructure:"negation_penalty"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	Method  string `yaml:"method" mapstructure:"method"`
	Size    int    `yaml:"size" mapstructure:"size"`
	Overlap int    `yaml:"overlap" mapstructure:"overlap"`
}

// JudgeConfig selects and throttles the compliance judge.
type JudgeConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	// BreakerThreshold consecutive failures open the circuit for
	// BreakerCooldown.
	BreakerThreshold int           `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// DocumentConfig configures text extraction.
type DocumentConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// FrameworkConfig points at a custom framework definition.
type FrameworkConfig struct {
	CustomPath   string `yaml:"custom_path" mapstructure:"custom_path"`
	ArticlesPath string `yaml:"articles_path" mapstructure:"articles_path"`
}

// StorageConfig configures where exported reports are written.
type StorageConfig struct {
	Type      string `yaml:"type" mapstructure:"type"`
	LocalPath string `yaml:"local_path" mapstructure:"local_path"`
	S3Bucket  string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Region  string `yaml:"s3_region" mapstructure:"s3_region"`
	S3Prefix  string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures run health checks and webhook alerts.
type MonitoringConfig struct {
	WebhookURL                string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs         int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours       int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold      float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	ChunkFailureRateThreshold float64 `yaml:"chunk_failure_rate_threshold" mapstructure:"chunk_failure_rate_threshold"`
	CostThresholdUSD          float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
}

// ModelPricing holds per-model token pricing.
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPLIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.framework", "gdpr")
	v.SetDefault("analysis.preset", "")
	v.SetDefault("analysis.high_risk_threshold", 8.0)
	v.SetDefault("analysis.min_chunk_length", 150)
	v.SetDefault("analysis.progressive", true)
	v.SetDefault("analysis.rag_articles", 5)
	v.SetDefault("analysis.max_chunks", 50)
	v.SetDefault("analysis.concurrency", 1)
	v.SetDefault("analysis.scoring_workers", 4)
	v.SetDefault("analysis.chunk_timeout", 2*time.Minute)
	v.SetDefault("analysis.reconcile", true)
	v.SetDefault("analysis.dedup_key_length", 40)
	v.SetDefault("analysis.weights.data", 1.0)
	v.SetDefault("analysis.weights.regulatory", 1.5)
	v.SetDefault("analysis.weights.high_risk_patterns", 5.0)
	v.SetDefault("analysis.weights.priority", 2.0)
	v.SetDefault("analysis.weights.phrase_bonus", 2.0)
	v.SetDefault("analysis.weights.context_bonus", 1.5)
	v.SetDefault("analysis.weights.negation_penalty", -2.0)
	v.SetDefault("chunking.method", "smart")
	v.SetDefault("chunking.size", 800)
	v.SetDefault("chunking.overlap", 100)
	v.SetDefault("judge.provider", "anthropic")
	v.SetDefault("judge.max_tokens", 2048)
	v.SetDefault("judge.temperature", 0.1)
	v.SetDefault("judge.requests_per_minute", 50)
	v.SetDefault("judge.max_attempts", 3)
	v.SetDefault("judge.breaker_threshold", 5)
	v.SetDefault("judge.breaker_cooldown", 30*time.Second)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("document.pdftotext_path", "pdftotext")
	v.SetDefault("framework.custom_path", "")
	v.SetDefault("framework.articles_path", "")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./reports")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_prefix", "reports")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "compliance.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.chunk_failure_rate_threshold", 0.20)
	v.SetDefault("monitoring.cost_threshold_usd", 50.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ConfigError reports an invalid configuration value. Configuration errors
// are fatal and must surface before any document is processed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks the settings needed by the given command. "analyze" and
// "serve" need a judge credential; "classify" only needs scoring settings.
func (c *Config) Validate(command string) error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}

	switch c.Chunking.Method {
	case "smart", "paragraph", "sentence", "simple":
	default:
		return &ConfigError{Field: "chunking.method", Reason: fmt.Sprintf("unknown method %q", c.Chunking.Method)}
	}
	if c.Chunking.Size <= 0 {
		return &ConfigError{Field: "chunking.size", Reason: "must be positive"}
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return &ConfigError{Field: "chunking.overlap", Reason: "must be in [0, size)"}
	}

	if command == "classify" || command == "frameworks" || command == "runs" || command == "monitor" {
		return nil
	}

	switch c.Judge.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			return &ConfigError{Field: "anthropic.key", Reason: "required for the anthropic judge (COMPLIANCE_ANTHROPIC_KEY)"}
		}
	case "gemini":
		if c.Gemini.Key == "" {
			return &ConfigError{Field: "gemini.key", Reason: "required for the gemini judge (COMPLIANCE_GEMINI_KEY)"}
		}
	default:
		return &ConfigError{Field: "judge.provider", Reason: fmt.Sprintf("unknown provider %q", c.Judge.Provider)}
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return &ConfigError{Field: "store.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Store.Driver)}
	}

	return nil
}

// Validate checks the analysis settings.
func (a AnalysisConfig) Validate() error {
	if strings.TrimSpace(a.Framework) == "" {
		return &ConfigError{Field: "analysis.framework", Reason: "required"}
	}
	if math.IsNaN(a.HighRiskThreshold) || math.IsInf(a.HighRiskThreshold, 0) || a.HighRiskThreshold < 0 {
		return &ConfigError{Field: "analysis.high_risk_threshold", Reason: "must be a finite non-negative number"}
	}
	if a.MinChunkLength < 0 {
		return &ConfigError{Field: "analysis.min_chunk_length", Reason: "must not be negative"}
	}
	if a.RAGArticles < 0 {
		return &ConfigError{Field: "analysis.rag_articles", Reason: "must not be negative"}
	}
	if a.MaxChunks <= 0 {
		return &ConfigError{Field: "analysis.max_chunks", Reason: "must be positive"}
	}
	if a.Concurrency <= 0 {
		return &ConfigError{Field: "analysis.concurrency", Reason: "must be positive"}
	}
	if a.DedupKeyLength <= 0 {
		return &ConfigError{Field: "analysis.dedup_key_length", Reason: "must be positive"}
	}
	if a.Preset != "" {
		if _, ok := presets[a.Preset]; !ok {
			return &ConfigError{Field: "analysis.preset", Reason: fmt.Sprintf("unknown preset %q", a.Preset)}
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
