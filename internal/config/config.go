package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env          string        `yaml:"env"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	FrontendURL  string        `yaml:"frontend_url"`
	JWT          struct {
		Secret           string `yaml:"secret"`
		ExpireDays       int    `yaml:"expireDays"`
		CookieExpireDays int    `yaml:"cookieExpireDays"`
	} `yaml:"jwt"`
}

type MongoCfg struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BrevoCfg struct {
	APIKey    string `yaml:"apiKey"`
	FromEmail string `yaml:"fromEmail"`
	FromName  string `yaml:"fromName"`
}

type AWSCfg struct {
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	Endpoint   string `yaml:"endpoint"`
	PublicRead bool   `yaml:"publicRead"`
}

type SecurityCfg struct {
	OtpTTLMinutes       int `yaml:"otpTTLMinutes"`
	ResetTTLMinutes     int `yaml:"resetTTLMinutes"`
	APIRateLimit        int `yaml:"apiRateLimit"`
	AuthRateLimit       int `yaml:"authRateLimit"`
	RateLimitWindowMins int `yaml:"rateLimitWindowMins"`
}

type Config struct {
	App      AppCfg      `yaml:"app"`
	Mongo    MongoCfg    `yaml:"mongo"`
	Redis    RedisCfg    `yaml:"redis"`
	Brevo    BrevoCfg    `yaml:"brevo"`
	AWS      AWSCfg      `yaml:"aws"`
	Security SecurityCfg `yaml:"security"`
}

// Load reads the YAML config file, applies environment overrides and
// validates required settings. The returned Config is built once at
// startup and passed by reference; nothing reads the environment later.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}
	overrideInt := func(env string, apply func(int)) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				apply(n)
			}
		}
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	overrideInt("APP_PORT", func(n int) { cfg.App.Port = n })
	override("FRONTEND_URL", func(v string) { cfg.App.FrontendURL = v })
	override("JWT_SECRET_KEY", func(v string) { cfg.App.JWT.Secret = v })
	overrideInt("JWT_EXPIRE_DAYS", func(n int) { cfg.App.JWT.ExpireDays = n })
	overrideInt("COOKIE_EXPIRE", func(n int) { cfg.App.JWT.CookieExpireDays = n })
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	override("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	override("BREVO_API_KEY", func(v string) { cfg.Brevo.APIKey = v })
	override("BREVO_FROM_EMAIL", func(v string) { cfg.Brevo.FromEmail = v })
	override("BREVO_FROM_NAME", func(v string) { cfg.Brevo.FromName = v })
	override("AWS_REGION", func(v string) { cfg.AWS.Region = v })
	override("AWS_S3_BUCKET", func(v string) { cfg.AWS.Bucket = v })
	override("AWS_S3_ENDPOINT", func(v string) { cfg.AWS.Endpoint = v })
	overrideInt("OTP_TTL_MINUTES", func(n int) { cfg.Security.OtpTTLMinutes = n })
	overrideInt("RESET_TTL_MINUTES", func(n int) { cfg.Security.ResetTTLMinutes = n })

	if cfg.App.Port == 0 {
		cfg.App.Port = 5000
	}
	if cfg.App.ReadTimeout == 0 {
		cfg.App.ReadTimeout = 10 * time.Second
	}
	if cfg.App.WriteTimeout == 0 {
		cfg.App.WriteTimeout = 10 * time.Second
	}
	if cfg.App.IdleTimeout == 0 {
		cfg.App.IdleTimeout = 60 * time.Second
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = "http://localhost:3000"
	}
	if cfg.App.JWT.ExpireDays == 0 {
		cfg.App.JWT.ExpireDays = 7
	}
	if cfg.App.JWT.CookieExpireDays == 0 {
		cfg.App.JWT.CookieExpireDays = cfg.App.JWT.ExpireDays
	}
	if cfg.Security.OtpTTLMinutes == 0 {
		cfg.Security.OtpTTLMinutes = 10
	}
	if cfg.Security.ResetTTLMinutes == 0 {
		cfg.Security.ResetTTLMinutes = 15
	}
	if cfg.Security.APIRateLimit == 0 {
		cfg.Security.APIRateLimit = 100
	}
	if cfg.Security.AuthRateLimit == 0 {
		cfg.Security.AuthRateLimit = 20
	}
	if cfg.Security.RateLimitWindowMins == 0 {
		cfg.Security.RateLimitWindowMins = 15
	}

	if cfg.App.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET_KEY is required (set in .env or config.yaml)")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	return cfg, nil
}

// IsProduction reports whether the app runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
