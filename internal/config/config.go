package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address           string `mapstructure:"address"`
	Port              int    `mapstructure:"port"`
	Mode              string `mapstructure:"mode"`
	PathPrefix        string `mapstructure:"path_prefix"`
	ReadHeaderTimeout string `mapstructure:"read_header_timeout"`
}

type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // sqlite / badger
	Path       string `mapstructure:"path"`
	LogMode    bool   `mapstructure:"log_mode"`
	MaxRetries int    `mapstructure:"max_retries"`
	GC         bool   `mapstructure:"gc"` // badger value log GC
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
	EncryptionKey      string `mapstructure:"encryption_key"`
	EnforceOwnership   bool   `mapstructure:"enforce_ownership"`
	LoginRatePerMinute int    `mapstructure:"login_rate_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / text
	File   string `mapstructure:"file"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type DemoConfig struct {
	SeedOnStartup bool   `mapstructure:"seed_on_startup"`
	Seed          int64  `mapstructure:"seed"` // 0 picks a random seed
	QRBaseURL     string `mapstructure:"qr_base_url"`
}

type AppSubConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Demo     DemoConfig     `mapstructure:"demo"`
	App      AppSubConfig   `mapstructure:"app"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it looks for "config.yaml" in the current working
// directory; a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		appConfig, err = read(path)
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.path_prefix", "/api")
	v.SetDefault("server.read_header_timeout", "30s")
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", "data/agritrace.db")
	v.SetDefault("store.log_mode", false)
	v.SetDefault("store.max_retries", 5)
	v.SetDefault("store.gc", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "agritrace")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.enforce_ownership", true)
	v.SetDefault("security.login_rate_per_minute", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("demo.seed_on_startup", false)
	v.SetDefault("demo.seed", 0)
	v.SetDefault("demo.qr_base_url", "https://agritrace.app/scan")
	v.SetDefault("app.page_size", 20)
}

func read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. AGRITRACE_SERVER_PORT=9000
	v.SetEnvPrefix("AGRITRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}
	if c.Server.Mode != "debug" {
		if c.JWT.Secret == "" {
			return errors.New("jwt.secret is required outside debug mode")
		}
		if c.Security.EncryptionKey == "" {
			return errors.New("security.encryption_key is required outside debug mode")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
