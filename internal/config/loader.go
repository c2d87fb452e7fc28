package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStringSlice(&cfg.Feed.Exchanges, "ARBOT_FEED_EXCHANGES")
	setStringSlice(&cfg.Feed.Symbols, "ARBOT_FEED_SYMBOLS")
	setDuration(&cfg.Feed.TickInterval, "ARBOT_FEED_TICK_INTERVAL")
	setFloat64(&cfg.Feed.Volatility, "ARBOT_FEED_VOLATILITY")
	setInt64(&cfg.Feed.Seed, "ARBOT_FEED_SEED")

	// ── Detectors ──
	setBool(&cfg.Detector.CrossExchange.Agent.Enabled, "ARBOT_DETECTOR_CROSS_EXCHANGE_ENABLED")
	setFloat64(&cfg.Detector.CrossExchange.MinSpreadThreshold, "ARBOT_DETECTOR_CROSS_EXCHANGE_MIN_SPREAD_THRESHOLD")
	setBool(&cfg.Detector.Statistical.Agent.Enabled, "ARBOT_DETECTOR_STATISTICAL_ENABLED")
	setInt(&cfg.Detector.Statistical.LookbackPeriod, "ARBOT_DETECTOR_STATISTICAL_LOOKBACK_PERIOD")
	setFloat64(&cfg.Detector.Statistical.ZScoreEntryThreshold, "ARBOT_DETECTOR_STATISTICAL_Z_SCORE_ENTRY_THRESHOLD")
	setFloat64(&cfg.Detector.Statistical.ZScoreExitThreshold, "ARBOT_DETECTOR_STATISTICAL_Z_SCORE_EXIT_THRESHOLD")
	setFloat64(&cfg.Detector.Statistical.CorrelationThreshold, "ARBOT_DETECTOR_STATISTICAL_CORRELATION_THRESHOLD")
	setBool(&cfg.Detector.Triangular.Agent.Enabled, "ARBOT_DETECTOR_TRIANGULAR_ENABLED")
	setFloat64(&cfg.Detector.Triangular.MinProfitThreshold, "ARBOT_DETECTOR_TRIANGULAR_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Detector.Triangular.BaseAmount, "ARBOT_DETECTOR_TRIANGULAR_BASE_AMOUNT")

	// ── Scorer ──
	setFloat64(&cfg.Scorer.MinScore, "ARBOT_SCORER_MIN_SCORE")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxPositionSize, "ARBOT_RISK_MAX_POSITION_SIZE")
	setFloat64(&cfg.Risk.MaxDailyLoss, "ARBOT_RISK_MAX_DAILY_LOSS")
	setFloat64(&cfg.Risk.MaxTotalExposure, "ARBOT_RISK_MAX_TOTAL_EXPOSURE")
	setFloat64(&cfg.Risk.MaxRiskScore, "ARBOT_RISK_MAX_RISK_SCORE")

	// ── Execution ──
	setStr(&cfg.Execution.Algorithm, "ARBOT_EXECUTION_ALGORITHM")
	setDuration(&cfg.Execution.Duration, "ARBOT_EXECUTION_DURATION")
	setInt(&cfg.Execution.NumSlices, "ARBOT_EXECUTION_NUM_SLICES")
	setFloat64(&cfg.Execution.ParticipationRate, "ARBOT_EXECUTION_PARTICIPATION_RATE")
	setFloat64(&cfg.Execution.RiskAversion, "ARBOT_EXECUTION_RISK_AVERSION")
	setFloat64(&cfg.Execution.TargetPercentage, "ARBOT_EXECUTION_TARGET_PERCENTAGE")
	setFloat64(&cfg.Execution.Aggressiveness, "ARBOT_EXECUTION_AGGRESSIVENESS")
	setDuration(&cfg.Execution.PollInterval, "ARBOT_EXECUTION_POLL_INTERVAL")

	// ── Broker ──
	setFloat64(&cfg.Broker.FeeBps, "ARBOT_BROKER_FEE_BPS")
	setFloat64(&cfg.Broker.MissRate, "ARBOT_BROKER_MISS_RATE")
	setDuration(&cfg.Broker.Latency, "ARBOT_BROKER_LATENCY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBOT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBOT_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "ARBOT_S3_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBOT_MODE")
	setStr(&cfg.LogLevel, "ARBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
