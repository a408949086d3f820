package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"cleanclip/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Environment   string
	LogLevel      string
	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	PublicBaseURL string
	AdminUserIDs  []uuid.UUID
	TemplatesDir  string
	PrewarmCron   string // 预热模板池缓存的 cron 表达式，空表示关闭

	Stripe struct {
		SecretKey        string
		WebhookSecret    string
		PriceMonthly     string
		PriceYearly      string
		RefundWindowDays int
	}
}

// Load 从 .env 和环境变量加载配置
func Load() (*Config, error) {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		utils.Log.Debug("No .env file found, using system environment variables")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	refundWindow, err := strconv.Atoi(getEnv("REFUND_WINDOW_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFUND_WINDOW_DAYS: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   strings.ToLower(getEnv("ENVIRONMENT", "development")),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "data/templates"),
		PrewarmCron:   os.Getenv("PREWARM_CRON"),
	}

	cfg.AdminUserIDs, err = parseUUIDList(os.Getenv("ADMIN_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_USER_IDS: %w", err)
	}

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.PriceMonthly = os.Getenv("STRIPE_PRICE_MONTHLY")
	cfg.Stripe.PriceYearly = os.Getenv("STRIPE_PRICE_YEARLY")
	cfg.Stripe.RefundWindowDays = refundWindow

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验必填配置
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.Stripe.RefundWindowDays < 0 {
		return fmt.Errorf("REFUND_WINDOW_DAYS must not be negative")
	}
	return nil
}

// IsProduction 生产/预发环境使用 JSON 日志
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

func parseUUIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
