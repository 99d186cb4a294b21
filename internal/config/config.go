package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Capture   CaptureConfig   `yaml:"capture" mapstructure:"capture"`
	DOM       DOMConfig       `yaml:"dom" mapstructure:"dom"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Acquire   AcquireConfig   `yaml:"acquire" mapstructure:"acquire"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CaptureConfig configures the page rendering/screenshot service.
type CaptureConfig struct {
	ServiceURL  string `yaml:"service_url" mapstructure:"service_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// DOMConfig configures direct DOM text acquisition.
type DOMConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// OCRConfig configures the raster-to-text engines. Engines lists the
// engines to run, in order; their outputs are concatenated.
type OCRConfig struct {
	Engines       []string `yaml:"engines" mapstructure:"engines"`
	TesseractPath string   `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	MistralKey    string   `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string   `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// InferenceConfig enumerates the backend tiers and their credentials.
// A tier is available only when its credential/endpoint is set here;
// core logic never consults the environment directly.
type InferenceConfig struct {
	LocalEndpoint  string  `yaml:"local_endpoint" mapstructure:"local_endpoint"`
	LocalModel     string  `yaml:"local_model" mapstructure:"local_model"`
	AnthropicKey   string  `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	AnthropicModel string  `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	MistralKey     string  `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel   string  `yaml:"mistral_model" mapstructure:"mistral_model"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs      int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// AcquireConfig configures the text acquisition strategy.
type AcquireConfig struct {
	MinContentChars int `yaml:"min_content_chars" mapstructure:"min_content_chars"`
}

// RegistryConfig configures the field schema registry.
type RegistryConfig struct {
	FieldsFile string `yaml:"fields_file" mapstructure:"fields_file"`
}

// StoreConfig configures optional run persistence. An empty driver
// disables persistence entirely.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig configures multi-URL processing.
type BatchConfig struct {
	MaxConcurrentURLs int `yaml:"max_concurrent_urls" mapstructure:"max_concurrent_urls"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PAGELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_urls", 4)
	v.SetDefault("capture.timeout_secs", 45)
	v.SetDefault("capture.temp_dir", "/tmp/pagelens")
	v.SetDefault("dom.timeout_secs", 30)
	v.SetDefault("dom.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("ocr.engines", []string{"tesseract"})
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("inference.anthropic_model", "claude-haiku-4-5-20251001")
	v.SetDefault("inference.mistral_model", "mistral-medium")
	v.SetDefault("inference.local_model", "mistral-7b-instruct")
	v.SetDefault("inference.max_attempts", 3)
	v.SetDefault("inference.backoff_ms", 500)
	v.SetDefault("inference.timeout_secs", 180)
	v.SetDefault("inference.rate_per_second", 1)
	v.SetDefault("acquire.min_content_chars", 50)
	v.SetDefault("store.driver", "")

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
