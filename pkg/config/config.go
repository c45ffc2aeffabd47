package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	OCR      OCRConfig
	Shifts   ShiftsConfig
	UI       UIConfig
	Inbox    InboxConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds postgres settings.
type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// OCRConfig holds recognition settings.
type OCRConfig struct {
	Language string
}

// ShiftsConfig holds the organization's civil timezone.
type ShiftsConfig struct {
	Timezone string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// InboxConfig holds the optional screenshot inbox watcher settings.
type InboxConfig struct {
	Dir        string
	CampaignID uint `mapstructure:"campaign_id"`
}

// Load reads configuration from file and env. Env overrides use prefix
// SHIFTFUND, e.g. SHIFTFUND_DATABASE_DSN.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8081")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("shifts.timezone", "Asia/Jakarta")
	v.SetDefault("ui.currency_symbol", "Rp")
	v.SetDefault("inbox.dir", "")
	v.SetDefault("inbox.campaign_id", 0)

	v.SetConfigType("toml")
	v.SetConfigName("shiftfund")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/shiftfund")

	v.SetEnvPrefix("SHIFTFUND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
