package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	API         APIConfig     `yaml:"api" mapstructure:"api"`
	Batch       BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Images      ImagesConfig  `yaml:"images" mapstructure:"images"`
	Sampler     SamplerConfig `yaml:"sampler" mapstructure:"sampler"`
	GreenMonths []int         `yaml:"greenmonths" mapstructure:"greenmonths"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	Segment     bool          `yaml:"segmentation" mapstructure:"segmentation"`
	Log         LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig holds imagery service credentials and endpoints.
type APIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Secret  string `yaml:"secret" mapstructure:"secret"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BatchConfig configures batch partitioning.
type BatchConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// ImagesConfig configures per-panorama view downloads.
type ImagesConfig struct {
	PerPano int `yaml:"per_pano" mapstructure:"per_pano"`
	Size    int `yaml:"size" mapstructure:"size"`
}

// SamplerConfig configures street densification.
type SamplerConfig struct {
	MinDist float64 `yaml:"min_dist" mapstructure:"min_dist"`
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
	v.SetEnvPrefix("GREENVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credentials default empty so AutomaticEnv can bind them.
	v.SetDefault("api.key", "")
	v.SetDefault("api.secret", "")
	v.SetDefault("api.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("batch.size", 500)
	v.SetDefault("images.per_pano", 3)
	v.SetDefault("images.size", 400)
	v.SetDefault("sampler.min_dist", 20)
	v.SetDefault("greenmonths", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	v.SetDefault("concurrency", 500)
	v.SetDefault("segmentation", true)
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

// RequireCredentials fails fast when the imagery API key is absent. Network
// commands call this before doing any work so a misconfigured run never gets
// partway through a batch.
func (c *Config) RequireCredentials() error {
	if c.API.Key == "" {
		return eris.New("config: api.key is required (set GREENVIEW_API_KEY)")
	}
	return nil
}

// YAML renders the effective configuration, with credentials redacted.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.API.Key != "" {
		redacted.API.Key = "***"
	}
	if redacted.API.Secret != "" {
		redacted.API.Secret = "***"
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal yaml")
	}
	return out, nil
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
