package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	DataDir    string `mapstructure:"data_dir"`

	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	ListenRetry      time.Duration `mapstructure:"listen_retry"`

	MailerEnabled  bool          `mapstructure:"mailer_enabled"`
	MailerInterval time.Duration `mapstructure:"mailer_interval"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	SMTPUsername   string        `mapstructure:"smtp_username"`
	SMTPPassword   string        `mapstructure:"smtp_password"`

	RootUsername  string `mapstructure:"root_username"`
	RootEmail     string `mapstructure:"root_email"`
	RootPassword  string `mapstructure:"root_password"`
	RootFirstName string `mapstructure:"root_first_name"`
	RootLastName  string `mapstructure:"root_last_name"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 4000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("handshake_timeout", "15s")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("listen_retry", "10s")
	v.SetDefault("mailer_enabled", false)
	v.SetDefault("mailer_interval", "5s")
	v.SetDefault("smtp_port", 587)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" && cfg.Mode != "debug" {
		return nil, errors.New("secret is required outside debug mode")
	}
	return &cfg, nil
}
