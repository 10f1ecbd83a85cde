package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Reconcile ReconcileConfig
	Webhook   WebhookConfig
	Security  SecurityConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
	// CORSAllowedOrigins is "*" or a comma-separated origin list.
	CORSAllowedOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// RedisConfig is optional. An empty Addr selects the in-process locker.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GatewayConfig struct {
	BaseURL          string
	Timeout          time.Duration
	NotificationURL  string
	DefaultReturnURL string
	Currency         string
}

type ReconcileConfig struct {
	Interval   time.Duration
	BootDelay  time.Duration
	PaymentTTL time.Duration
	LockTTL    time.Duration
}

type WebhookConfig struct {
	EnforceSignature bool
}

type SecurityConfig struct {
	// CredentialKey is a 32-byte key, hex or base64 encoded.
	CredentialKey  string
	AdminTokenHash string
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "booking-payments")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GATEWAY_BASE_URL", "https://api.mercadopago.com")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("GATEWAY_CURRENCY", "BRL")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("RECONCILE_BOOT_DELAY", "10s")
	v.SetDefault("PAYMENT_TTL", "30m")
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("WEBHOOK_ENFORCE_SIGNATURE", false)

	if err := v.ReadInConfig(); err != nil {
		// .env is optional, plain environment is enough in containers
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:               v.GetString("APP_NAME"),
			Port:               v.GetString("PORT"),
			Debug:              v.GetBool("DEBUG"),
			LogPath:            v.GetString("LOG_PATH"),
			CORSAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Gateway: GatewayConfig{
			BaseURL:          v.GetString("GATEWAY_BASE_URL"),
			Timeout:          v.GetDuration("GATEWAY_TIMEOUT"),
			NotificationURL:  v.GetString("GATEWAY_NOTIFICATION_URL"),
			DefaultReturnURL: v.GetString("GATEWAY_RETURN_URL"),
			Currency:         v.GetString("GATEWAY_CURRENCY"),
		},
		Reconcile: ReconcileConfig{
			Interval:   v.GetDuration("RECONCILE_INTERVAL"),
			BootDelay:  v.GetDuration("RECONCILE_BOOT_DELAY"),
			PaymentTTL: v.GetDuration("PAYMENT_TTL"),
			LockTTL:    v.GetDuration("LOCK_TTL"),
		},
		Webhook: WebhookConfig{
			EnforceSignature: v.GetBool("WEBHOOK_ENFORCE_SIGNATURE"),
		},
		Security: SecurityConfig{
			CredentialKey:  v.GetString("CREDENTIAL_KEY"),
			AdminTokenHash: v.GetString("ADMIN_TOKEN_HASH"),
		},
	}

	return config, nil
}
