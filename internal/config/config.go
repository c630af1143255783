package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Portal  PortalConfig  `yaml:"portal" mapstructure:"portal"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	SMTP    SMTPConfig    `yaml:"smtp" mapstructure:"smtp"`
	Twilio  TwilioConfig  `yaml:"twilio" mapstructure:"twilio"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// MonitorConfig configures the check cycle.
type MonitorConfig struct {
	// CategoryIDs restricts monitoring to specific year-type ids.
	// Empty means discover and monitor everything on the index page.
	CategoryIDs      []int `yaml:"category_ids" mapstructure:"category_ids"`
	RequestDelaySecs int   `yaml:"request_delay_secs" mapstructure:"request_delay_secs"`
	MaxRetries       int   `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs      int   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PortalConfig configures the source portal.
type PortalConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotifyConfig holds the alert recipient lists.
type NotifyConfig struct {
	EmailRecipients []string `yaml:"email_recipients" mapstructure:"email_recipients"`
	SMSRecipients   []string `yaml:"sms_recipients" mapstructure:"sms_recipients"`
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	FromAddress string `yaml:"from_address" mapstructure:"from_address"`
	UseTLS      bool   `yaml:"use_tls" mapstructure:"use_tls"`
}

// TwilioConfig holds SMS delivery credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken  string `yaml:"auth_token" mapstructure:"auth_token"`
	FromNumber string `yaml:"from_number" mapstructure:"from_number"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
}

// StoreConfig configures the seen-store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("monitor.request_delay_secs", 2)
	v.SetDefault("monitor.max_retries", 3)
	v.SetDefault("monitor.timeout_secs", 30)
	v.SetDefault("portal.base_url", "https://opsportal.spp.org")
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.use_tls", true)
	v.SetDefault("twilio.base_url", "https://api.twilio.com")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/seen_studies.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
