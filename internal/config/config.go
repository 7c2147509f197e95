package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	SMTP       SMTPConfig
	Gateways   GatewayConfig
	JWT        JWTConfig
	Dispatcher DispatcherConfig
	Hub        HubConfig
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	// URL enables the cross-process live fan-out bridge; empty disables it.
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type GatewayConfig struct {
	PushURL string `mapstructure:"push_url"`
	SMSURL  string `mapstructure:"sms_url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type DispatcherConfig struct {
	RetryCeiling int           `mapstructure:"retry_ceiling"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	WorkerPool   int           `mapstructure:"worker_pool"`
}

type HubConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxSubscribers int `mapstructure:"max_subscribers"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("dispatcher.retry_ceiling", 5)
	viper.SetDefault("dispatcher.poll_interval", time.Minute)
	viper.SetDefault("dispatcher.send_timeout", 10*time.Second)
	viper.SetDefault("dispatcher.worker_pool", 10)
	viper.SetDefault("hub.buffer_size", 16)
	viper.SetDefault("hub.max_subscribers", 10000)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
