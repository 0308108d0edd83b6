// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Quota     QuotaConfig     `koanf:"quota"`
	Premium   PremiumConfig   `koanf:"premium"`
	Badges    BadgeConfig     `koanf:"badges"`
	Payments  PaymentsConfig  `koanf:"payments"`
	AI        AIConfig        `koanf:"ai"`
	Admin     AdminConfig     `koanf:"admin"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL             string        `koanf:"url"`
	PoolSize        int           `koanf:"pool_size"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	PoolTimeout     time.Duration `koanf:"pool_timeout"`
	KeyPrefix       string        `koanf:"key_prefix"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

// RateLimitConfig covers request throttling, separate from the daily
// learning quota. Ask limits apply per learner on the tutor endpoint.
type RateLimitConfig struct {
	Requests    int `koanf:"requests"`
	Burst       int `koanf:"burst"`
	AskRequests int `koanf:"ask_requests"`
	AskBurst    int `koanf:"ask_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// QuotaConfig holds the free-tier daily ceilings. Premium learners bypass them.
type QuotaConfig struct {
	QuestionsPerDay int   `koanf:"questions_per_day"`
	UploadsPerDay   int   `koanf:"uploads_per_day"`
	MaxUploadBytes  int64 `koanf:"max_upload_bytes"`
}

// PremiumConfig prices one premium period. Amounts are in minor units; mobile
// money is priced separately because M-Pesa settles in KES only.
type PremiumConfig struct {
	Period              time.Duration `koanf:"period"`
	Amount              int64         `koanf:"amount"`
	Currency            string        `koanf:"currency"`
	MobileMoneyAmount   int64         `koanf:"mobile_money_amount"`
	MobileMoneyCurrency string        `koanf:"mobile_money_currency"`
}

type BadgeConfig struct {
	PDFExplorerUploads int `koanf:"pdf_explorer_uploads"`
	PolyglotLanguages  int `koanf:"polyglot_languages"`
}

type PaymentsConfig struct {
	StripeWebhookSecret string        `koanf:"stripe_webhook_secret"`
	MpesaCallbackToken  string        `koanf:"mpesa_callback_token"`
	PendingTTL          time.Duration `koanf:"pending_ttl"`
}

type AIConfig struct {
	Provider string        `koanf:"provider"`
	APIKey   string        `koanf:"api_key"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
}

type AdminConfig struct {
	APIKey string `koanf:"api_key"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Tutor Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":        10,
		"redis.min_idle_conns":   5,
		"redis.pool_timeout":     "30s",
		"redis.key_prefix":       "tutor:",
		"redis.connect_attempts": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "tutor-backend",
		"jwt.audience":             "tutor-backend-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests":     100,
		"rate_limit.burst":        20,
		"rate_limit.ask_requests": 10,
		"rate_limit.ask_burst":    3,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Admin-Key",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "tutor-backend",

		"quota.questions_per_day": 10,
		"quota.uploads_per_day":   1,
		"quota.max_upload_bytes":  10 << 20,

		"premium.period":                "720h",
		"premium.amount":                499,
		"premium.currency":              "usd",
		"premium.mobile_money_amount":   50000,
		"premium.mobile_money_currency": "kes",

		"badges.pdf_explorer_uploads": 5,
		"badges.polyglot_languages":   2,

		"payments.pending_ttl": "72h",

		"ai.provider": "echo",
		"ai.model":    "gemini-2.0-flash",
		"ai.timeout":  "60s",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"REDIS_POOL_SIZE":             "redis.pool_size",
	"REDIS_KEY_PREFIX":            "redis.key_prefix",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_ASK_REQUESTS":     "rate_limit.ask_requests",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"QUOTA_QUESTIONS_PER_DAY":     "quota.questions_per_day",
	"QUOTA_UPLOADS_PER_DAY":       "quota.uploads_per_day",
	"PREMIUM_PERIOD":              "premium.period",
	"PREMIUM_AMOUNT":              "premium.amount",
	"PREMIUM_MPESA_AMOUNT":        "premium.mobile_money_amount",
	"STRIPE_WEBHOOK_SECRET":       "payments.stripe_webhook_secret",
	"MPESA_CALLBACK_TOKEN":        "payments.mpesa_callback_token",
	"PAYMENTS_PENDING_TTL":        "payments.pending_ttl",
	"AI_PROVIDER":                 "ai.provider",
	"GEMINI_API_KEY":              "ai.api_key",
	"AI_MODEL":                    "ai.model",
	"ADMIN_API_KEY":               "admin.api_key",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

// validate reports every problem at once so a misconfigured deploy can be
// fixed in one pass.
func validate(c *Config) error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	required := []struct{ name, value string }{
		{"DATABASE_URL", c.Database.URL},
		{"REDIS_URL", c.Redis.URL},
		{"JWT_PRIVATE_KEY_PATH", c.JWT.PrivateKeyPath},
		{"JWT_PUBLIC_KEY_PATH", c.JWT.PublicKeyPath},
	}
	for _, r := range required {
		if r.value == "" {
			fail("%s is required", r.name)
		}
	}

	if c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*") {
		fail("CORS wildcard '*' cannot be used with AllowCredentials")
	}

	if c.IsProduction() {
		if c.Otel.Enabled && c.Otel.Insecure {
			fail("OTEL_INSECURE must be false in production")
		}
		if c.Admin.APIKey == "" {
			slog.Warn("ADMIN_API_KEY is empty, admin routes will reject every request")
		}
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		fail("server read and write timeouts must be positive")
	}

	if c.Redis.PoolSize <= 0 || c.Redis.MinIdleConns > c.Redis.PoolSize {
		fail("redis pool_size must be positive and at least min_idle_conns")
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.AskRequests <= 0 {
		fail("rate limits must be positive")
	}

	if c.Quota.QuestionsPerDay < 0 || c.Quota.UploadsPerDay < 0 {
		fail("quota limits must not be negative")
	}

	if c.Premium.Period <= 0 {
		fail("premium.period must be positive")
	}
	if c.Premium.Amount <= 0 || c.Premium.MobileMoneyAmount <= 0 {
		fail("premium amounts must be positive")
	}

	switch c.AI.Provider {
	case "echo":
	case "gemini":
		if c.AI.APIKey == "" {
			fail("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		fail("unknown ai.provider %q", c.AI.Provider)
	}

	return errors.Join(problems...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
