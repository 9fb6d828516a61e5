package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN              string
	MaxOpen          int
	MaxIdle          int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
	MigrateOnStart   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketReports string
	UseSSL        bool
	Region        string
	PresignTTL    time.Duration
}

type PasswordConfig struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	JWTIssuer        string
	JWTAudience      string
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration
	Password         PasswordConfig
}

type TrackingConfig struct {
	Timezone string
}

// Location resolves the configured timezone used to derive login dates.
func (t TrackingConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Tracking         TrackingConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

// Validate rejects configurations the server cannot run safely with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.Security.JWTAccessSecret == "" || c.Security.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("security.jwtaccesssecret and security.jwtrefreshsecret are required"))
	} else if c.Security.JWTAccessSecret == c.Security.JWTRefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.Security.MaxLoginAttempts < 1 {
		errs = append(errs, errors.New("security.maxloginattempts must be positive"))
	}
	if _, err := c.Tracking.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func Load() (*AppConfig, error) {
	envFile := os.Getenv("TIMETRACK_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TIMETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.statementtimeout", "5s")
	v.SetDefault("postgres.migrateonstart", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketreports", "timetrack-reports")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "15m")

	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtrefreshsecret", "")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "168h") // 7 days
	v.SetDefault("security.jwtissuer", "timetrack-api")
	v.SetDefault("security.jwtaudience", "timetrack-clients")
	v.SetDefault("security.maxloginattempts", 5)
	v.SetDefault("security.lockoutduration", "30m")
	v.SetDefault("security.loginratelimit", 20)
	v.SetDefault("security.loginratewindow", "1m")
	v.SetDefault("security.password.time", 3)
	v.SetDefault("security.password.memory", 64*1024)
	v.SetDefault("security.password.threads", 2)

	v.SetDefault("tracking.timezone", "UTC")

	v.SetDefault("allowcorsorigins", []string{})
}
