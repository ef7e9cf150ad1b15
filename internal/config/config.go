package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/user/catalog-scraper/internal/domain"
)

// Config stores all configuration for the application.
type Config struct {
	EntryURL    string             `mapstructure:"entry_url"`
	Credentials domain.Credentials `mapstructure:"credentials"`
	Navigation  NavigationConfig   `mapstructure:"navigation"`
	Selectors   SelectorConfig     `mapstructure:"selectors"`
	Timeouts    TimeoutConfig      `mapstructure:"timeouts"`
	Pagination  PaginationConfig   `mapstructure:"pagination"`
	Output      OutputConfig       `mapstructure:"output"`
	Session     SessionConfig      `mapstructure:"session"`
	Browser     BrowserConfig      `mapstructure:"browser"`
	Run         RunConfig          `mapstructure:"run"`
	Debug       DebugConfig        `mapstructure:"debug"`
	Postgres    PostgresConfig     `mapstructure:"postgres"`
	Server      ServerConfig       `mapstructure:"server"`
	Logger      LoggerConfig       `mapstructure:"logger"`
}

type NavigationConfig struct {
	Steps []domain.NavigationStep `mapstructure:"steps"`
}

// SelectorConfig holds the selectors the scraper looks for. Selectors starting with "/" or "(" are XPath, the rest CSS.
type SelectorConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Submit   string `mapstructure:"submit"`
	Table    string `mapstructure:"table"`
	Row      string `mapstructure:"row"`
	Cell     string `mapstructure:"cell"`
	Next     string `mapstructure:"next"`
}

type TimeoutConfig struct {
	LoginProbe     time.Duration `mapstructure:"login_probe"`
	LoginSettle    time.Duration `mapstructure:"login_settle"`
	NavigationStep time.Duration `mapstructure:"navigation_step"`
	Click          time.Duration `mapstructure:"click"`
	Table          time.Duration `mapstructure:"table"`
}

type PaginationConfig struct {
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	MaxPages      int           `mapstructure:"max_pages"`
}

type OutputConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Backend   string        `mapstructure:"backend"` // "file" or "redis"
	Path      string        `mapstructure:"path"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisKey  string        `mapstructure:"redis_key"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent"`
}

type RunConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type DebugConfig struct {
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults registers every recognized option so environment overrides resolve.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("entry_url", "")
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("navigation.steps", []map[string]any{
		{"label": "Dashboard Tools"},
		{"label": "Data Visualization"},
		{"label": "Inventory Management"},
		{"label": "View Product Inventory"},
	})

	v.SetDefault("selectors.username", "input[name='username']")
	v.SetDefault("selectors.password", "input[name='password']")
	v.SetDefault("selectors.submit", "button[type='submit']")
	v.SetDefault("selectors.table", "table")
	v.SetDefault("selectors.row", "table tbody tr")
	v.SetDefault("selectors.cell", "td")
	v.SetDefault("selectors.next", "//button[normalize-space(.)='Next']")

	v.SetDefault("timeouts.login_probe", 5*time.Second)
	v.SetDefault("timeouts.login_settle", 30*time.Second)
	v.SetDefault("timeouts.navigation_step", 15*time.Second)
	v.SetDefault("timeouts.click", 10*time.Second)
	v.SetDefault("timeouts.table", 20*time.Second)

	v.SetDefault("pagination.settle_timeout", 5*time.Second)
	v.SetDefault("pagination.settle_delay", 1500*time.Millisecond)
	v.SetDefault("pagination.max_pages", 500)

	v.SetDefault("output.path", "products.json")

	v.SetDefault("session.backend", "file")
	v.SetDefault("session.path", "session.json")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_key", "session:catalog-scraper")
	v.SetDefault("session.max_age", time.Duration(0))

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("run.timeout", 10*time.Minute)
	v.SetDefault("debug.snapshot_dir", "")
	v.SetDefault("postgres.url", "")
	v.SetDefault("server.port", "8080")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)
}

// Load reads configuration from the given file (or ./config.yaml), the
// environment (SCRAPER_ prefix) and defaults, in that order of precedence
// below any flags already bound to v.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyStepDefaults()
	return &cfg, nil
}

func (c *Config) applyStepDefaults() {
	for i := range c.Navigation.Steps {
		if c.Navigation.Steps[i].Timeout <= 0 {
			c.Navigation.Steps[i].Timeout = c.Timeouts.NavigationStep
		}
	}
}

// Validate checks the options a run cannot do without.
func (c *Config) Validate() error {
	var errs []error
	if c.EntryURL == "" {
		errs = append(errs, errors.New("entry_url is required"))
	}
	if len(c.Navigation.Steps) == 0 {
		errs = append(errs, errors.New("navigation.steps must not be empty"))
	}
	for i, step := range c.Navigation.Steps {
		if step.Label == "" && step.Selector == "" {
			errs = append(errs, fmt.Errorf("navigation.steps[%d] needs a label or a selector", i))
		}
	}
	if c.Output.Path == "" {
		errs = append(errs, errors.New("output.path is required"))
	}
	switch c.Session.Backend {
	case "file":
		if c.Session.Path == "" {
			errs = append(errs, errors.New("session.path is required for the file backend"))
		}
	case "redis":
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session.backend %q", c.Session.Backend))
	}

	timeouts := map[string]time.Duration{
		"timeouts.login_probe":      c.Timeouts.LoginProbe,
		"timeouts.login_settle":     c.Timeouts.LoginSettle,
		"timeouts.navigation_step":  c.Timeouts.NavigationStep,
		"timeouts.click":            c.Timeouts.Click,
		"timeouts.table":            c.Timeouts.Table,
		"pagination.settle_timeout": c.Pagination.SettleTimeout,
		"pagination.settle_delay":   c.Pagination.SettleDelay,
	}
	for key, d := range timeouts {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if c.Pagination.MaxPages <= 0 {
		errs = append(errs, errors.New("pagination.max_pages must be positive"))
	}
	return errors.Join(errs...)
}
