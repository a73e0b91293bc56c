// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	AI          AIConfig
	Scraper     ScraperConfig
	Credits     CreditsConfig
	Render      RenderConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Payment     PaymentConfig
	Identity    IdentityConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	RateLimit    bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type AIConfig struct {
	Provider  string // openai (any OpenAI compatible endpoint) or anthropic
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type ScraperConfig struct {
	Enabled           bool
	Headless          bool
	ExecutablePath    string
	UserAgent         string
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	AttemptTimeout    time.Duration
	MaxConcurrent     int
}

type CreditsConfig struct {
	SignupBonus      int
	ExtractionCost   int
	ScriptCost       int
	VideoCost        int
	RegenerationCost int
	ReservationTTL   time.Duration
	JanitorInterval  time.Duration
}

type RenderConfig struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	RenderDelay time.Duration
	QueueKey    string
	QueueSize   int
}

type RedisConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

// StorageConfig is used when no S3 credentials are configured: render
// artifacts are written under LocalDir and served from PublicBaseURL.
type StorageConfig struct {
	LocalDir      string
	PublicBaseURL string
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
}

// IdentityConfig describes the external identity provider whose HS256
// tokens are accepted. An empty secret disables token checks.
type IdentityConfig struct {
	JWTSecret string
	Issuer    string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "3001"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			RateLimit:    getEnvAsBool("RATE_LIMIT_ENABLED", true),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "affiliator_ai"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		AI: AIConfig{
			Provider:  getEnv("AI_PROVIDER", "openai"),
			APIKey:    getEnv("AI_API_KEY", os.Getenv("DEEPSEEK_API_KEY")),
			BaseURL:   getEnv("AI_BASE_URL", "https://api.deepseek.com"),
			Model:     getEnv("AI_MODEL", "deepseek-chat"),
			MaxTokens: getEnvAsInt("AI_MAX_TOKENS", 2000),
			Timeout:   getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		},
		Scraper: ScraperConfig{
			Enabled:           getEnvAsBool("SCRAPER_ENABLED", true),
			Headless:          getEnvAsBool("SCRAPER_HEADLESS", true),
			ExecutablePath:    getEnv("SCRAPER_EXECUTABLE_PATH", ""),
			UserAgent:         getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			NavigationTimeout: getEnvAsDuration("SCRAPER_NAVIGATION_TIMEOUT", 30*time.Second),
			SelectorTimeout:   getEnvAsDuration("SCRAPER_SELECTOR_TIMEOUT", 10*time.Second),
			AttemptTimeout:    getEnvAsDuration("SCRAPER_ATTEMPT_TIMEOUT", 45*time.Second),
			MaxConcurrent:     getEnvAsInt("SCRAPER_MAX_PAGES", 4),
		},
		Credits: CreditsConfig{
			SignupBonus:      getEnvAsInt("CREDITS_SIGNUP_BONUS", 100),
			ExtractionCost:   getEnvAsInt("CREDITS_EXTRACTION_COST", 10),
			ScriptCost:       getEnvAsInt("CREDITS_SCRIPT_COST", 20),
			VideoCost:        getEnvAsInt("CREDITS_VIDEO_COST", 50),
			RegenerationCost: getEnvAsInt("CREDITS_REGENERATION_COST", 0),
			ReservationTTL:   getEnvAsDuration("CREDIT_RESERVATION_TTL", 10*time.Minute),
			JanitorInterval:  getEnvAsDuration("CREDIT_JANITOR_INTERVAL", time.Minute),
		},
		Render: RenderConfig{
			Workers:     getEnvAsInt("RENDER_WORKERS", 2),
			MaxAttempts: getEnvAsInt("RENDER_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvAsDuration("RENDER_RETRY_DELAY", 5*time.Second),
			RenderDelay: getEnvAsDuration("RENDER_DELAY", 5*time.Second),
			QueueKey:    getEnv("RENDER_QUEUE_KEY", "affiliator:queue:render"),
			QueueSize:   getEnvAsInt("RENDER_QUEUE_SIZE", 100),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", nil),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "affiliator"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "affiliator-renders"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Storage: StorageConfig{
			LocalDir:      getEnv("MEDIA_DIR", "./media"),
			PublicBaseURL: getEnv("MEDIA_BASE_URL", "http://localhost:3001/media"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			Currency:             getEnv("PAYMENT_CURRENCY", "idr"),
		},
		Identity: IdentityConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.AI.APIKey == "" && c.Environment == "production" {
		return fmt.Errorf("AI API key is required in production")
	}

	if c.AI.Provider != "openai" && c.AI.Provider != "anthropic" {
		return fmt.Errorf("unsupported AI provider %q", c.AI.Provider)
	}

	if c.Credits.ExtractionCost < 0 || c.Credits.ScriptCost < 0 || c.Credits.VideoCost < 0 || c.Credits.RegenerationCost < 0 {
		return fmt.Errorf("credit costs must not be negative")
	}

	if c.Render.Workers < 1 || c.Render.MaxAttempts < 1 {
		return fmt.Errorf("render workers and attempts must be at least 1")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
