// Package config loads server settings from defaults, an optional YAML file,
// a .env file, TRACEIT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TRACEIT_RATELIMIT_WINDOW.
const EnvPrefix = "TRACEIT"

// DefaultFile is the config file looked up in the working directory when none
// is given explicitly.
const DefaultFile = "traceit.yaml"

// Photo and attempt limiter backends.
const (
	PhotosSQLite = "sqlite"
	PhotosS3     = "s3"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
	LimiterOff    = "off"
)

var (
	ErrPhotosBackend  = errors.New("unknown photos backend")
	ErrLimiterBackend = errors.New("unknown ratelimit backend")
	ErrLimit          = errors.New("ratelimit attempts and window must be positive")
	ErrLogLevel       = errors.New("unknown log level")
	ErrMissingBucket  = errors.New("photos.s3.bucket is required for the s3 backend")
)

// Config holds the server settings.
type Config struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	DB          string        `mapstructure:"db" yaml:"db"`
	Log         string        `mapstructure:"log" yaml:"log"`
	LogLevel    string        `mapstructure:"log_level" yaml:"log_level"`
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	CORSOrigins []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	TrustProxy  bool          `mapstructure:"trust_proxy" yaml:"trust_proxy"`
	Photos      Photos        `mapstructure:"photos" yaml:"photos"`
	RateLimit   RateLimit     `mapstructure:"ratelimit" yaml:"ratelimit"`
}

type Photos struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	S3      S3     `mapstructure:"s3" yaml:"s3"`
}

type S3 struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

type RateLimit struct {
	Backend   string        `mapstructure:"backend" yaml:"backend"`
	Attempts  int           `mapstructure:"attempts" yaml:"attempts"`
	Window    time.Duration `mapstructure:"window" yaml:"window"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":5000",
		DB:          "traceit.sqlite3",
		LogLevel:    "info",
		TokenTTL:    7 * 24 * time.Hour,
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Photos:      Photos{Backend: PhotosSQLite},
		RateLimit: RateLimit{
			Backend:   LimiterMemory,
			Attempts:  10,
			Window:    15 * time.Minute,
			RedisAddr: "localhost:6379",
		},
	}
}

// keys lists every setting so that environment variables are seen by
// Unmarshal even when no file mentions the key.
var keys = []string{
	"addr", "db", "log", "log_level", "jwt_secret", "token_ttl", "cors_origins", "trust_proxy",
	"photos.backend", "photos.s3.bucket", "photos.s3.region", "photos.s3.endpoint",
	"photos.s3.access_key", "photos.s3.secret_key",
	"ratelimit.backend", "ratelimit.attempts", "ratelimit.window", "ratelimit.redis_addr",
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("db", d.DB)
	v.SetDefault("log", d.Log)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("jwt_secret", d.JWTSecret)
	v.SetDefault("token_ttl", d.TokenTTL)
	v.SetDefault("cors_origins", d.CORSOrigins)
	v.SetDefault("trust_proxy", d.TrustProxy)
	v.SetDefault("photos.backend", d.Photos.Backend)
	v.SetDefault("photos.s3.bucket", "")
	v.SetDefault("photos.s3.region", "")
	v.SetDefault("photos.s3.endpoint", "")
	v.SetDefault("photos.s3.access_key", "")
	v.SetDefault("photos.s3.secret_key", "")
	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
	v.SetDefault("ratelimit.attempts", d.RateLimit.Attempts)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)
	v.SetDefault("ratelimit.redis_addr", d.RateLimit.RedisAddr)
}

// Sources tells Load where to look besides the defaults and the environment.
type Sources struct {
	// ConfigFile is an explicit YAML file; it must exist. When empty,
	// DefaultFile is used if present in the working directory.
	ConfigFile string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// Flags are bound by name with dashes read as underscores, so --log-level
	// sets log_level. Only flags the user set take effect.
	Flags *pflag.FlagSet
}

// Load resolves the configuration and validates it.
func Load(src Sources) (*Config, error) {
	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", src.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if src.ConfigFile != "" {
		v.SetConfigFile(src.ConfigFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if src.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src.Flags != nil {
		var bindErr error
		src.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if bindErr == nil && slices.Contains(keys, key) {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend names and limits.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Photos.Backend {
	case PhotosSQLite:
	case PhotosS3:
		if c.Photos.S3.Bucket == "" {
			return ErrMissingBucket
		}
	default:
		return fmt.Errorf("%w: %q", ErrPhotosBackend, c.Photos.Backend)
	}
	switch c.RateLimit.Backend {
	case LimiterMemory, LimiterRedis:
		if c.RateLimit.Attempts <= 0 || c.RateLimit.Window <= 0 {
			return ErrLimit
		}
	case LimiterOff:
	default:
		return fmt.Errorf("%w: %q", ErrLimiterBackend, c.RateLimit.Backend)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrLogLevel, c.LogLevel)
	}
	return level, nil
}

// WriteDefault writes the built-in settings to path as YAML. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
