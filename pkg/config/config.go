package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Log      LogConfig      `mapstructure:"log"`
	Cart     CartConfig     `mapstructure:"cart"`
	Bot      BotConfig      `mapstructure:"bot"`
	Payments PaymentsConfig `mapstructure:"payments"`
}

type ServerConfig struct {
	Name       string `mapstructure:"name"`
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	AdminToken string `mapstructure:"admin_token"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type CartConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// BotConfig configures the messaging bot used for order notifications.
// AdminChatIDs lists every recipient of the fan-out.
type BotConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	Token        string        `mapstructure:"token"`
	AdminChatIDs []int64       `mapstructure:"admin_chat_ids"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type PaymentsConfig struct {
	Quickpay QuickpayConfig `mapstructure:"quickpay"`
	CardAPI  CardAPIConfig  `mapstructure:"card_api"`
}

// QuickpayConfig describes the hosted redirect-based payment page.
type QuickpayConfig struct {
	FormURL    string `mapstructure:"form_url"`
	Receiver   string `mapstructure:"receiver"`
	SuccessURL string `mapstructure:"success_url"`
	Targets    string `mapstructure:"targets"`
}

// CardAPIConfig describes the hosted card-payment REST API.
type CardAPIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ShopID    string        `mapstructure:"shop_id"`
	SecretKey string        `mapstructure:"secret_key"`
	Currency  string        `mapstructure:"currency"`
	ReturnURL string        `mapstructure:"return_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("cart.ttl", 30*24*time.Hour)
	v.SetDefault("bot.api_url", "https://api.telegram.org")
	v.SetDefault("bot.timeout", 30*time.Second)
	v.SetDefault("bot.max_retries", 3)
	v.SetDefault("payments.card_api.currency", "KZT")
	v.SetDefault("payments.card_api.timeout", 30*time.Second)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Payments.Quickpay.FormURL != "" && c.Payments.Quickpay.Receiver == "" {
		return fmt.Errorf("payments.quickpay.receiver is required when quickpay is configured")
	}
	if c.Payments.CardAPI.BaseURL != "" && c.Payments.CardAPI.SecretKey == "" {
		return fmt.Errorf("payments.card_api.secret_key is required when card_api is configured")
	}
	if c.Bot.Token != "" && len(c.Bot.AdminChatIDs) == 0 {
		return fmt.Errorf("bot.admin_chat_ids must not be empty when bot is configured")
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
