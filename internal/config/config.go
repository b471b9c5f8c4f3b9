// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"cardvault/pkg/db"
)

// AppConfig holds all application-wide configuration, bound from environment
// variables (CARDVAULT_SERVER_PORT, CARDVAULT_DB_HOST, ...).
type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	DB     db.Config    `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Sweep  SweepConfig  `mapstructure:"sweep"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains token and card-confidentiality settings. The
// encryption key must be hex and decode to 16, 24 or 32 bytes.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"required"`
	EncryptionKey string        `mapstructure:"encryption_key" validate:"required,hexadecimal"`
	HMACSecret    string        `mapstructure:"hmac_secret" validate:"required,min=32"`
}

// SweepConfig contains background sweep settings.
type SweepConfig struct {
	Schedule    string        `mapstructure:"schedule" validate:"required"`
	StaleCutoff time.Duration `mapstructure:"stale_cutoff" validate:"required"`
}

// Load reads configuration from the environment, applies defaults and
// validates the result.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "cardvault")
	v.SetDefault("db.password", "cardvault")
	v.SetDefault("db.name", "cardvault")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("sweep.schedule", "@hourly")
	v.SetDefault("sweep.stale_cutoff", time.Hour)

	v.SetEnvPrefix("CARDVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only feeds Unmarshal for keys viper already knows about;
	// secrets have no defaults, so bind them explicitly.
	for _, key := range []string{"auth.jwt_secret", "auth.encryption_key", "auth.hmac_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
