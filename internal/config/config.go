// Package config defines the top-level configuration for the arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Feed      FeedConfig      `toml:"feed"`
	Detector  DetectorConfig  `toml:"detector"`
	Scorer    ScorerConfig    `toml:"scorer"`
	Risk      RiskConfig      `toml:"risk"`
	Execution ExecutionConfig `toml:"execution"`
	Broker    BrokerConfig    `toml:"broker"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// FeedConfig holds the simulated market data feed parameters.
type FeedConfig struct {
	Exchanges    []string           `toml:"exchanges"`
	Symbols      []string           `toml:"symbols"`
	TickInterval duration           `toml:"tick_interval"`
	Volatility   float64            `toml:"volatility"` // per-tick relative stddev
	BasePrices   map[string]float64 `toml:"base_prices"`
	Seed         int64              `toml:"seed"` // 0 = time-based
}

// AgentConfig holds the per-agent viability thresholds applied by the
// orchestrator before admission.
type AgentConfig struct {
	Enabled         bool    `toml:"enabled"`
	MinProfitPct    float64 `toml:"min_profit_pct"`
	MinConfidence   float64 `toml:"min_confidence"`
	MaxRisk         float64 `toml:"max_risk"`
}

// DetectorConfig groups per-detector tuning.
type DetectorConfig struct {
	CrossExchange CrossExchangeConfig `toml:"cross_exchange"`
	Statistical   StatisticalConfig   `toml:"statistical"`
	Triangular    TriangularConfig    `toml:"triangular"`
}

// CrossExchangeConfig tunes the cross-exchange detector.
type CrossExchangeConfig struct {
	Agent              AgentConfig `toml:"agent"`
	MinSpreadThreshold float64     `toml:"min_spread_threshold"` // pct
}

// StatisticalConfig tunes the statistical arbitrage detector.
type StatisticalConfig struct {
	Agent                 AgentConfig `toml:"agent"`
	LookbackPeriod        int         `toml:"lookback_period"`
	ZScoreEntryThreshold  float64     `toml:"z_score_entry_threshold"`
	ZScoreExitThreshold   float64     `toml:"z_score_exit_threshold"`
	CorrelationThreshold  float64     `toml:"correlation_threshold"`
	BaseQuantity          float64     `toml:"base_quantity"`
	MeanReversionQuantity float64     `toml:"mean_reversion_quantity"`
}

// TriangularConfig tunes the triangular arbitrage detector.
type TriangularConfig struct {
	Agent              AgentConfig `toml:"agent"`
	MinProfitThreshold float64     `toml:"min_profit_threshold"` // pct
	BaseAmount         float64     `toml:"base_amount"`          // notional per cycle
}

// ScorerConfig holds the opportunity scorer weights and filter.
type ScorerConfig struct {
	ProfitabilityWeight    float64 `toml:"profitability_weight"`
	ConfidenceWeight       float64 `toml:"confidence_weight"`
	RiskWeight             float64 `toml:"risk_weight"`
	ExecutionQualityWeight float64 `toml:"execution_quality_weight"`
	TimingWeight           float64 `toml:"timing_weight"`
	MinScore               float64 `toml:"min_score"`
}

// RiskConfig holds the admission-control limits.
type RiskConfig struct {
	MaxPositionSize  float64 `toml:"max_position_size"`
	MaxDailyLoss     float64 `toml:"max_daily_loss"`
	MaxTotalExposure float64 `toml:"max_total_exposure"`
	MaxRiskScore     float64 `toml:"max_risk_score"`
}

// ExecutionConfig holds scheduling parameters shared by the execution
// algorithms. Algorithm selects the default for single-leg opportunities.
type ExecutionConfig struct {
	Algorithm         string   `toml:"algorithm"` // twap, vwap, shortfall, pov, adaptive
	Duration          duration `toml:"duration"`
	NumSlices         int      `toml:"num_slices"`
	ParticipationRate float64  `toml:"participation_rate"`
	RiskAversion      float64  `toml:"risk_aversion"`
	Volatility        float64  `toml:"volatility"`
	TargetPercentage  float64  `toml:"target_percentage"`
	Aggressiveness    float64  `toml:"aggressiveness"`
	PollInterval      duration `toml:"poll_interval"`
}

// BrokerConfig holds the simulated broker parameters.
type BrokerConfig struct {
	FeeBps   float64  `toml:"fee_bps"`
	MissRate float64  `toml:"miss_rate"` // probability a slice returns no fill
	Latency  duration `toml:"latency"`
	Seed     int64    `toml:"seed"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables authentication
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. A
// config file and ARBOT_* environment variables override them field by
// field.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			Exchanges:    []string{"alpha", "beta", "gamma"},
			Symbols:      []string{"BTC/USDT", "ETH/USDT", "ETH/BTC"},
			TickInterval: duration{500 * time.Millisecond},
			Volatility:   0.002,
			BasePrices: map[string]float64{
				"BTC/USDT": 65000,
				"ETH/USDT": 3200,
				"ETH/BTC":  0.0492,
			},
		},
		Detector: DetectorConfig{
			CrossExchange: CrossExchangeConfig{
				Agent: AgentConfig{
					Enabled:       true,
					MinProfitPct:  0.1,
					MinConfidence: 0.7,
					MaxRisk:       0.5,
				},
				MinSpreadThreshold: 0.1,
			},
			Statistical: StatisticalConfig{
				Agent: AgentConfig{
					Enabled:       true,
					MinProfitPct:  0.05,
					MinConfidence: 0.7,
					MaxRisk:       0.5,
				},
				LookbackPeriod:        50,
				ZScoreEntryThreshold:  2.0,
				ZScoreExitThreshold:   0.5,
				CorrelationThreshold:  0.8,
				BaseQuantity:          1.0,
				MeanReversionQuantity: 0.5,
			},
			Triangular: TriangularConfig{
				Agent: AgentConfig{
					Enabled:       true,
					MinProfitPct:  0.05,
					MinConfidence: 0.7,
					MaxRisk:       0.5,
				},
				MinProfitThreshold: 0.05,
				BaseAmount:         1000,
			},
		},
		Scorer: ScorerConfig{
			ProfitabilityWeight:    0.30,
			ConfidenceWeight:       0.25,
			RiskWeight:             0.20,
			ExecutionQualityWeight: 0.15,
			TimingWeight:           0.10,
			MinScore:               0.5,
		},
		Risk: RiskConfig{
			MaxPositionSize:  10_000,
			MaxDailyLoss:     1_000,
			MaxTotalExposure: 50_000,
			MaxRiskScore:     0.7,
		},
		Execution: ExecutionConfig{
			Algorithm:         "twap",
			Duration:          duration{30 * time.Second},
			NumSlices:         5,
			ParticipationRate: 0.1,
			RiskAversion:      1.0,
			Volatility:        0.3,
			TargetPercentage:  0.05,
			Aggressiveness:    0.5,
			PollInterval:      duration{time.Second},
		},
		Broker: BrokerConfig{
			FeeBps:   5,
			MissRate: 0.05,
			Latency:  duration{20 * time.Millisecond},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbot",
			User:          "arbot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbot-data",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_executed", "limit_breached", "partial_execution"},
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"detect":  true,
	"monitor": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validAlgorithms enumerates the accepted execution algorithm names.
var validAlgorithms = map[string]bool{
	"twap":      true,
	"vwap":      true,
	"shortfall": true,
	"pov":       true,
	"adaptive":  true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, detect, monitor, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if len(c.Feed.Exchanges) < 2 {
		errs = append(errs, "feed: at least two exchanges are required for cross-exchange detection")
	}
	if len(c.Feed.Symbols) == 0 {
		errs = append(errs, "feed: symbols must not be empty")
	}
	if c.Feed.TickInterval.Duration <= 0 {
		errs = append(errs, "feed: tick_interval must be positive")
	}
	if c.Feed.Volatility < 0 {
		errs = append(errs, "feed: volatility must be >= 0")
	}

	// Detectors
	if c.Detector.Statistical.Agent.Enabled {
		if c.Detector.Statistical.LookbackPeriod < 3 {
			errs = append(errs, "detector.statistical: lookback_period must be >= 3")
		}
		if c.Detector.Statistical.ZScoreEntryThreshold <= 0 {
			errs = append(errs, "detector.statistical: z_score_entry_threshold must be > 0")
		}
		if c.Detector.Statistical.CorrelationThreshold <= 0 || c.Detector.Statistical.CorrelationThreshold > 1 {
			errs = append(errs, "detector.statistical: correlation_threshold must be in (0,1]")
		}
	}
	if c.Detector.CrossExchange.Agent.Enabled && c.Detector.CrossExchange.MinSpreadThreshold < 0 {
		errs = append(errs, "detector.cross_exchange: min_spread_threshold must be >= 0")
	}
	if c.Detector.Triangular.Agent.Enabled && c.Detector.Triangular.BaseAmount <= 0 {
		errs = append(errs, "detector.triangular: base_amount must be > 0")
	}

	// Scorer weights must be non-negative and sum to something sensible.
	ws := []float64{
		c.Scorer.ProfitabilityWeight, c.Scorer.ConfidenceWeight, c.Scorer.RiskWeight,
		c.Scorer.ExecutionQualityWeight, c.Scorer.TimingWeight,
	}
	sum := 0.0
	for _, w := range ws {
		if w < 0 {
			errs = append(errs, "scorer: weights must be >= 0")
			break
		}
		sum += w
	}
	if sum <= 0 {
		errs = append(errs, "scorer: at least one weight must be > 0")
	}

	// Risk
	if c.Risk.MaxPositionSize <= 0 {
		errs = append(errs, "risk: max_position_size must be > 0")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		errs = append(errs, "risk: max_daily_loss must be > 0")
	}
	if c.Risk.MaxTotalExposure <= 0 {
		errs = append(errs, "risk: max_total_exposure must be > 0")
	}
	if c.Risk.MaxRiskScore <= 0 || c.Risk.MaxRiskScore > 1 {
		errs = append(errs, "risk: max_risk_score must be in (0,1]")
	}

	// Execution
	if !validAlgorithms[strings.ToLower(c.Execution.Algorithm)] {
		errs = append(errs, fmt.Sprintf("execution: unknown algorithm %q (valid: twap, vwap, shortfall, pov, adaptive)", c.Execution.Algorithm))
	}
	if c.Execution.NumSlices < 1 {
		errs = append(errs, "execution: num_slices must be >= 1")
	}
	if c.Execution.Duration.Duration <= 0 {
		errs = append(errs, "execution: duration must be positive")
	}
	if c.Execution.ParticipationRate <= 0 || c.Execution.ParticipationRate > 1 {
		errs = append(errs, "execution: participation_rate must be in (0,1]")
	}
	if c.Execution.TargetPercentage <= 0 || c.Execution.TargetPercentage > 1 {
		errs = append(errs, "execution: target_percentage must be in (0,1]")
	}
	if c.Execution.PollInterval.Duration <= 0 {
		errs = append(errs, "execution: poll_interval must be positive")
	}

	// Broker
	if c.Broker.MissRate < 0 || c.Broker.MissRate >= 1 {
		errs = append(errs, "broker: miss_rate must be in [0,1)")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiver requires postgres journal to be enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
