package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Feed       FeedConfig       `yaml:"feed" mapstructure:"feed"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Facet      FacetConfig      `yaml:"facet" mapstructure:"facet"`
	Reclassify ReclassifyConfig `yaml:"reclassify" mapstructure:"reclassify"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the catalog database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FeedConfig describes the distributor's file drop.
type FeedConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	Username           string `yaml:"username" mapstructure:"username"`
	Password           string `yaml:"password" mapstructure:"password"`
	TLS                string `yaml:"tls" mapstructure:"tls"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	RemoteDir          string `yaml:"remote_dir" mapstructure:"remote_dir"`
	InventoryFile      string `yaml:"inventory_file" mapstructure:"inventory_file"`
	QuantityFile       string `yaml:"quantity_file" mapstructure:"quantity_file"`
	DeletedFile        string `yaml:"deleted_file" mapstructure:"deleted_file"`
	LocalDir           string `yaml:"local_dir" mapstructure:"local_dir"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Delimiter          string `yaml:"delimiter" mapstructure:"delimiter"`
	MinFields          int    `yaml:"min_fields" mapstructure:"min_fields"`
}

// SearchConfig holds search index credentials and publish tuning.
type SearchConfig struct {
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	AppID              string  `yaml:"app_id" mapstructure:"app_id"`
	APIKey             string  `yaml:"api_key" mapstructure:"api_key"`
	Index              string  `yaml:"index" mapstructure:"index"`
	BatchSize          int     `yaml:"batch_size" mapstructure:"batch_size"`
	RatePerSec         float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ClearBeforePublish bool    `yaml:"clear_before_publish" mapstructure:"clear_before_publish"`
	MaxBatchAttempts   int     `yaml:"max_batch_attempts" mapstructure:"max_batch_attempts"`
}

// PricingConfig holds the tier derivation constants.
type PricingConfig struct {
	LowCostThreshold float64 `yaml:"low_cost_threshold" mapstructure:"low_cost_threshold"`
	LowCostMarkupPct float64 `yaml:"low_cost_markup_pct" mapstructure:"low_cost_markup_pct"`
	FlatMarkup       float64 `yaml:"flat_markup" mapstructure:"flat_markup"`
	MAPFallbackRatio float64 `yaml:"map_fallback_ratio" mapstructure:"map_fallback_ratio"`
	Tier3Markup      float64 `yaml:"tier3_markup" mapstructure:"tier3_markup"`
}

// SyncConfig configures the orchestrator.
type SyncConfig struct {
	MonitorInterval  time.Duration `yaml:"monitor_interval" mapstructure:"monitor_interval"`
	StallThreshold   time.Duration `yaml:"stall_threshold" mapstructure:"stall_threshold"`
	MaxPhaseRestarts int           `yaml:"max_phase_restarts" mapstructure:"max_phase_restarts"`
	StateDriver      string        `yaml:"state_driver" mapstructure:"state_driver"`
	StatePath        string        `yaml:"state_path" mapstructure:"state_path"`
	Workers          int           `yaml:"workers" mapstructure:"workers"`
	WriteBatchSize   int           `yaml:"write_batch_size" mapstructure:"write_batch_size"`
	ScheduleInterval time.Duration `yaml:"schedule_interval" mapstructure:"schedule_interval"`
	FetchAttempts    int           `yaml:"fetch_attempts" mapstructure:"fetch_attempts"`
}

// FacetConfig points at optional rule overrides.
type FacetConfig struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ReclassifyConfig configures bulk reclassification.
type ReclassifyConfig struct {
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	ReportDir string `yaml:"report_dir" mapstructure:"report_dir"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("feed.host", "ftps.rsrgroup.com")
	v.SetDefault("feed.port", 2222)
	v.SetDefault("feed.tls", "explicit")
	v.SetDefault("feed.insecure_skip_verify", true)
	v.SetDefault("feed.remote_dir", "/ftpdownloads")
	v.SetDefault("feed.inventory_file", "rsrinventory-new.txt")
	v.SetDefault("feed.quantity_file", "IM-QTY-CSV.csv")
	v.SetDefault("feed.deleted_file", "rsrdeletedinv.txt")
	v.SetDefault("feed.local_dir", "/tmp/catalog-sync")
	v.SetDefault("feed.timeout_secs", 60)
	v.SetDefault("feed.delimiter", ";")
	v.SetDefault("feed.min_fields", 77)

	v.SetDefault("search.index", "products")
	v.SetDefault("search.batch_size", 1000)
	v.SetDefault("search.rate_per_sec", 5.0)
	v.SetDefault("search.max_batch_attempts", 3)

	v.SetDefault("pricing.low_cost_threshold", 200.0)
	v.SetDefault("pricing.low_cost_markup_pct", 10.0)
	v.SetDefault("pricing.flat_markup", 20.0)
	v.SetDefault("pricing.map_fallback_ratio", 0.95)
	v.SetDefault("pricing.tier3_markup", 1.05)

	v.SetDefault("sync.monitor_interval", 5*time.Minute)
	v.SetDefault("sync.stall_threshold", 10*time.Minute)
	v.SetDefault("sync.max_phase_restarts", 3)
	v.SetDefault("sync.state_driver", "sqlite")
	v.SetDefault("sync.state_path", "catalog-sync-state.db")
	v.SetDefault("sync.workers", 8)
	v.SetDefault("sync.write_batch_size", 500)
	v.SetDefault("sync.schedule_interval", 2*time.Hour)
	v.SetDefault("sync.fetch_attempts", 3)

	v.SetDefault("reclassify.batch_size", 500)
	v.SetDefault("reclassify.report_dir", "./reports")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
