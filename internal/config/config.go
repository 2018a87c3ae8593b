// Package config loads service configuration from flags and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Hosting strategy selectors
	StrategyChain    = "chain"
	StrategySelfHost = "selfhost"

	// Defaults
	DefaultPort            = 8000
	DefaultLogLevel        = "info"
	DefaultSinchAPIURL     = "https://fax.api.sinch.com/v3/projects"
	DefaultPharmacyFax     = "17057415595"
	DefaultPDFSaveDir      = "generated_pdfs"
	DefaultGracePeriod     = 5 * time.Minute
	DefaultProviderTimeout = 30 * time.Second
	DefaultPipelineTimeout = 60 * time.Second
)

// Config holds all configuration for the fax bridge service
type Config struct {
	// Server
	Port          int
	PublicBaseURL string
	LogLevel      string
	Environment   string

	// Fax provider
	SinchAPIURL       string
	SinchAccessKey    string
	SinchAccessSecret string
	SinchProjectID    string
	PharmacyFaxNumber string
	CallbackURL       string

	// Hosting
	HostingStrategy    string
	FileIOEndpoint     string
	TransferShEndpoint string
	ProviderTimeout    time.Duration

	// Pipeline
	PipelineTimeout    time.Duration
	CleanupGracePeriod time.Duration
	PDFSaveDir         string

	// Optional infrastructure
	DatabaseURL  string
	KafkaBrokers []string
	OTLPEndpoint string
}

// DefaultConfig returns a configuration with production defaults
func DefaultConfig() *Config {
	return &Config{
		Port:               DefaultPort,
		LogLevel:           DefaultLogLevel,
		Environment:        "development",
		SinchAPIURL:        DefaultSinchAPIURL,
		PharmacyFaxNumber:  DefaultPharmacyFax,
		HostingStrategy:    StrategyChain,
		ProviderTimeout:    DefaultProviderTimeout,
		PipelineTimeout:    DefaultPipelineTimeout,
		CleanupGracePeriod: DefaultGracePeriod,
		PDFSaveDir:         DefaultPDFSaveDir,
	}
}

// LoadFromFlags parses command line flags and environment variables.
// Environment variables use the FAXBRIDGE_ prefix, e.g.
// FAXBRIDGE_SINCH_ACCESS_KEY.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("FAXBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := pflag.NewFlagSet("faxbridge", pflag.ContinueOnError)
	flags.Int("port", cfg.Port, "HTTP listen port")
	flags.String("public-base-url", "", "Externally reachable base URL of this service (selfhost strategy)")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("environment", cfg.Environment, "Deployment environment name")
	flags.String("sinch-api-url", cfg.SinchAPIURL, "Sinch fax API base URL")
	flags.String("sinch-access-key", "", "Sinch access key")
	flags.String("sinch-access-secret", "", "Sinch access secret")
	flags.String("sinch-project-id", "", "Sinch project ID")
	flags.String("pharmacy-fax-number", cfg.PharmacyFaxNumber, "Default destination fax number")
	flags.String("callback-url", "", "Optional callback URL for delivery notifications")
	flags.String("hosting-strategy", cfg.HostingStrategy, "Content hosting strategy: chain or selfhost")
	flags.String("fileio-endpoint", "", "Override file.io endpoint")
	flags.String("transfersh-endpoint", "", "Override transfer.sh endpoint")
	flags.Duration("provider-timeout", cfg.ProviderTimeout, "Timeout per external provider call")
	flags.Duration("pipeline-timeout", cfg.PipelineTimeout, "Wall-clock ceiling for one submission")
	flags.Duration("cleanup-grace-period", cfg.CleanupGracePeriod, "Delay before self-hosted content is evicted")
	flags.String("pdf-save-dir", cfg.PDFSaveDir, "Directory for permanently saved PDFs")
	flags.String("database-url", "", "Optional Postgres URL for the dispatch audit log")
	flags.String("kafka-brokers", "", "Optional comma-separated Kafka brokers for dispatch events")
	flags.String("otlp-endpoint", "", "Optional OTLP gRPC endpoint for traces")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg.Port = v.GetInt("port")
	cfg.PublicBaseURL = v.GetString("public-base-url")
	cfg.LogLevel = v.GetString("log-level")
	cfg.Environment = v.GetString("environment")
	cfg.SinchAPIURL = v.GetString("sinch-api-url")
	cfg.SinchAccessKey = v.GetString("sinch-access-key")
	cfg.SinchAccessSecret = v.GetString("sinch-access-secret")
	cfg.SinchProjectID = v.GetString("sinch-project-id")
	cfg.PharmacyFaxNumber = v.GetString("pharmacy-fax-number")
	cfg.CallbackURL = v.GetString("callback-url")
	cfg.HostingStrategy = v.GetString("hosting-strategy")
	cfg.FileIOEndpoint = v.GetString("fileio-endpoint")
	cfg.TransferShEndpoint = v.GetString("transfersh-endpoint")
	cfg.ProviderTimeout = v.GetDuration("provider-timeout")
	cfg.PipelineTimeout = v.GetDuration("pipeline-timeout")
	cfg.CleanupGracePeriod = v.GetDuration("cleanup-grace-period")
	cfg.PDFSaveDir = v.GetString("pdf-save-dir")
	cfg.DatabaseURL = v.GetString("database-url")
	cfg.OTLPEndpoint = v.GetString("otlp-endpoint")

	if brokers := v.GetString("kafka-brokers"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.HostingStrategy {
	case StrategyChain:
	case StrategySelfHost:
		if c.PublicBaseURL == "" {
			return fmt.Errorf("hosting strategy %q requires public-base-url", c.HostingStrategy)
		}
	default:
		return fmt.Errorf("unknown hosting strategy %q", c.HostingStrategy)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("pipeline-timeout must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider-timeout must be positive")
	}
	return nil
}

// SelfHostEnabled reports whether the served-content endpoint is active
func (c *Config) SelfHostEnabled() bool {
	return c.HostingStrategy == StrategySelfHost
}
