package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/amosWeiskopf/phishsmith/internal/logging"
	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/analyzer"
	"github.com/amosWeiskopf/phishsmith/pkg/crawler"
	"github.com/amosWeiskopf/phishsmith/pkg/domain"
)

// Config holds all application configuration
type Config struct {
	// Scoring and verdict configuration
	Detection DetectionConfig `mapstructure:"detection"`

	// Brand registry, in tie-break order
	KnownBanks []models.BrandProfile `mapstructure:"known_banks" validate:"min=1,dive"`

	// Headless browser configuration
	Capture CaptureConfig `mapstructure:"capture"`

	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Reference screenshot storage
	References ReferencesConfig `mapstructure:"references"`

	// Result storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Logging configuration
	Logging logging.Config `mapstructure:"logging"`

	// Worker pool configuration
	Workers WorkersConfig `mapstructure:"workers"`
}

// DetectionConfig holds the fusion weights, verdict threshold and domain
// heuristics
type DetectionConfig struct {
	DomainSimilarityWeight     float64                 `mapstructure:"domain_similarity_weight" validate:"gte=0,lte=1"`
	ImageSimilarityWeight      float64                 `mapstructure:"image_similarity_weight" validate:"gte=0,lte=1"`
	StructuralSimilarityWeight float64                 `mapstructure:"structural_similarity_weight" validate:"gte=0,lte=1"`
	PhishingThreshold          float64                 `mapstructure:"phishing_threshold" validate:"gte=0,lte=1"`
	SuspiciousTLDs             []string                `mapstructure:"suspicious_tlds"`
	DomainWeights              domain.SubMetricWeights `mapstructure:"domain_weights"`
	SuspiciousConfidence       float64                 `mapstructure:"suspicious_confidence" validate:"gte=0,lte=1"`
}

// CaptureConfig holds browser capture configuration
type CaptureConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" validate:"gte=0"`
	WindowWidth    int           `mapstructure:"window_width" validate:"gt=0"`
	WindowHeight   int           `mapstructure:"window_height" validate:"gt=0"`
	UserAgent      string        `mapstructure:"user_agent"`
	Headless       bool          `mapstructure:"headless"`
	ElementsHeight int           `mapstructure:"elements_height" validate:"gt=0"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	MaxPages          int           `mapstructure:"max_pages" validate:"gt=0"`
	MaxDepth          int           `mapstructure:"max_depth" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FollowRobotsTxt   bool          `mapstructure:"follow_robots_txt"`
	IrrelevantDomains []string      `mapstructure:"irrelevant_domains"`
	RelevantKeywords  []string      `mapstructure:"relevant_keywords"`
	Seeds             []string      `mapstructure:"seeds" validate:"dive,url"`
}

// ReferencesConfig holds reference screenshot storage configuration
type ReferencesConfig struct {
	Type   string `mapstructure:"type" validate:"oneof=file s3"` // "file" or "s3"
	Path   string `mapstructure:"path" validate:"required_if=Type file"`
	Bucket string `mapstructure:"bucket" validate:"required_if=Type s3"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// StorageConfig holds result storage configuration
type StorageConfig struct {
	Type string `mapstructure:"type" validate:"oneof=file database"` // "file" or "database"
	Path string `mapstructure:"path" validate:"required"`
}

// WorkersConfig bounds concurrent work
type WorkersConfig struct {
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=0"`
}

// Load loads configuration from file and environment. An explicit path
// must exist; otherwise the usual locations are searched and a missing file
// falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.phishsmith")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Detection defaults
	v.SetDefault("detection.domain_similarity_weight", 0.4)
	v.SetDefault("detection.image_similarity_weight", 0.35)
	v.SetDefault("detection.structural_similarity_weight", 0.25)
	v.SetDefault("detection.phishing_threshold", 0.7)
	v.SetDefault("detection.suspicious_tlds", domain.DefaultSuspiciousTLDs)
	v.SetDefault("detection.domain_weights.domain_name", domain.DefaultWeights.DomainName)
	v.SetDefault("detection.domain_weights.full_domain", domain.DefaultWeights.FullDomain)
	v.SetDefault("detection.domain_weights.common_substring", domain.DefaultWeights.CommonSubstring)
	v.SetDefault("detection.domain_weights.subdomain", domain.DefaultWeights.Subdomain)
	v.SetDefault("detection.suspicious_confidence", 0.3)

	// Brand registry defaults
	v.SetDefault("known_banks", []map[string]any{
		{"short_name": "sbi", "name": "State Bank of India", "url": "https://www.onlinesbi.sbi", "login_url": "https://retail.onlinesbi.sbi/retail/login.htm"},
		{"short_name": "idfc", "name": "IDFC First Bank", "url": "https://www.idfcfirstbank.com", "login_url": "https://my.idfcfirstbank.com/login"},
		{"short_name": "hdfc", "name": "HDFC Bank", "url": "https://www.hdfcbank.com", "login_url": "https://netbanking.hdfcbank.com/netbanking/"},
		{"short_name": "icici", "name": "ICICI Bank", "url": "https://www.icicibank.com"},
		{"short_name": "axis", "name": "Axis Bank", "url": "https://www.axisbank.com"},
	})

	// Capture defaults
	v.SetDefault("capture.timeout", "30s")
	v.SetDefault("capture.settle_delay", "2s")
	v.SetDefault("capture.window_width", 1920)
	v.SetDefault("capture.window_height", 1080)
	v.SetDefault("capture.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("capture.headless", true)
	v.SetDefault("capture.elements_height", 400)

	// Crawler defaults
	v.SetDefault("crawler.max_pages", 50)
	v.SetDefault("crawler.max_depth", 1)
	v.SetDefault("crawler.requests_per_second", 2)
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.timeout", "20s")
	v.SetDefault("crawler.follow_robots_txt", true)
	v.SetDefault("crawler.irrelevant_domains", crawler.DefaultIrrelevantDomains)
	v.SetDefault("crawler.relevant_keywords", crawler.DefaultRelevantKeywords)
	v.SetDefault("crawler.seeds", []string{
		"https://www.google.com/search?q=sbi+netbanking+login",
		"https://www.google.com/search?q=idfc+bank+login",
		"https://www.google.com/search?q=hdfc+netbanking",
	})

	// Reference storage defaults
	v.SetDefault("references.type", "file")
	v.SetDefault("references.path", "bank_screenshots")
	v.SetDefault("references.prefix", "bank_screenshots")

	// Result storage defaults
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.path", "phishing_results.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Worker defaults; zero means one worker per CPU
	v.SetDefault("workers.max_workers", 0)
}

// bindEnvVars binds environment variables
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("PHISHSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("references.region", "PHISHSMITH_REFERENCES_REGION", "AWS_REGION")
	v.BindEnv("references.bucket", "PHISHSMITH_REFERENCES_BUCKET", "PHISHSMITH_S3_BUCKET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Detection.DomainWeights.Validate(); err != nil {
		return fmt.Errorf("invalid config: detection.%w", err)
	}

	seen := make(map[string]bool, len(c.KnownBanks))
	for _, b := range c.KnownBanks {
		if seen[b.ShortName] {
			return fmt.Errorf("invalid config: duplicate bank short_name %q", b.ShortName)
		}
		seen[b.ShortName] = true
	}
	return nil
}

// Fusion returns the fusion weights and verdict threshold.
func (d DetectionConfig) Fusion() analyzer.Config {
	return analyzer.Config{
		Weights: analyzer.Weights{
			Domain:     d.DomainSimilarityWeight,
			Feature:    d.ImageSimilarityWeight,
			Structural: d.StructuralSimilarityWeight,
		},
		Threshold: d.PhishingThreshold,
	}
}

// CrawlerOptions converts the crawler section into crawler options.
func (c CrawlerConfig) CrawlerOptions() crawler.Options {
	return crawler.Options{
		MaxPages:          c.MaxPages,
		MaxDepth:          c.MaxDepth,
		RequestsPerSec:    c.RequestsPerSecond,
		UserAgent:         c.UserAgent,
		Timeout:           c.Timeout,
		FollowRobotsTxt:   c.FollowRobotsTxt,
		IrrelevantDomains: c.IrrelevantDomains,
		RelevantKeywords:  c.RelevantKeywords,
	}
}
