package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Env         string `mapstructure:"ENV"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	// Token signing
	TokenSecret string        `mapstructure:"AUTH_TOKEN_SECRET"`
	TokenTTL    time.Duration `mapstructure:"AUTH_TOKEN_TTL"`

	// Storage. Empty DSN selects the in-memory repositories.
	MySQLDSN string `mapstructure:"MYSQL_DSN"`

	// Inventory read cache. Empty address disables caching.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Notification queue. Empty URL selects the in-memory queue.
	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
	NotificationQueue string `mapstructure:"NOTIFICATION_QUEUE"`

	// Mail transport. Empty host selects the log-only sender.
	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	// Recipient for low-stock alerts.
	AlertEmail string `mapstructure:"ALERT_EMAIL"`

	// Split deployments: when set, the orchestrator calls these peers over
	// HTTP instead of the in-process services.
	InventoryURL   string        `mapstructure:"INVENTORY_URL"`
	UserServiceURL string        `mapstructure:"USER_SERVICE_URL"`
	DeductTimeout  time.Duration `mapstructure:"DEDUCT_TIMEOUT"`

	DefaultPageSize int `mapstructure:"DEFAULT_PAGE_SIZE"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVICE_NAME", "orderflow")
	v.SetDefault("ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("AUTH_TOKEN_SECRET", "change-me-in-production")
	// Matches the 1 hour lifetime the token consumers were built around.
	v.SetDefault("AUTH_TOKEN_TTL", time.Hour)

	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("NOTIFICATION_QUEUE", "order.notifications")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@orderflow.local")
	v.SetDefault("ALERT_EMAIL", "inventory-alerts@orderflow.local")

	v.SetDefault("INVENTORY_URL", "")
	v.SetDefault("USER_SERVICE_URL", "")
	v.SetDefault("DEDUCT_TIMEOUT", 5*time.Second)

	v.SetDefault("DEFAULT_PAGE_SIZE", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		// No config file is fine; env vars and defaults apply.
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
