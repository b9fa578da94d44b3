package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	MySQL     DatabaseConfig  `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Import    ImportConfig    `mapstructure:"import"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GatewayConfig describes the WAHA endpoint used to deliver WhatsApp messages.
type GatewayConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	SendPath string        `mapstructure:"send_path"`
	APIKey   string        `mapstructure:"api_key"`
	Session  string        `mapstructure:"session"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	Timezone string        `mapstructure:"timezone"`
	PauseMin time.Duration `mapstructure:"pause_min"`
	PauseMax time.Duration `mapstructure:"pause_max"`
	Template string        `mapstructure:"template"`
}

type SchedulerConfig struct {
	Cron string `mapstructure:"cron"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

type ImportConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// legacyEnv maps config keys to the plain env names used by earlier deployments.
var legacyEnv = map[string]string{
	"gateway.base_url": "WAHA_URL",
	"gateway.api_key":  "WAHA_API_KEY",
	"gateway.session":  "WAHA_SESSION",
	"mysql.dsn":        "DB_DSN",
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (VISACRM_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (VISACRM_*)
	v.SetEnvPrefix("VISACRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "VISACRM_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the notification job cannot run without.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notify.PauseMin < 0 || c.Notify.PauseMax < c.Notify.PauseMin {
		return fmt.Errorf("invalid pause range: min=%s max=%s", c.Notify.PauseMin, c.Notify.PauseMax)
	}
	if strings.TrimSpace(c.Notify.Template) == "" {
		return errors.New("notify.template is empty")
	}
	if strings.TrimSpace(c.Gateway.BaseURL) == "" {
		return errors.New("gateway.base_url is empty")
	}
	return nil
}

// Location resolves the business timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Notify.Timezone, err)
	}
	return loc, nil
}
