package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds client core configuration
type Config struct {
	Log       LogConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Identity  IdentityConfig
	Bootstrap BootstrapConfig
	Activity  ActivityConfig
	Control   ControlConfig
	Archive   ArchiveConfig
}

type LogConfig struct {
	Level string
	Dev   bool
}

type MongoDBConfig struct {
	URI                string
	Database           string
	Timeout            time.Duration
	ConnectAttempts    int
	ProfilesCollection string
	ActivityCollection string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type IdentityConfig struct {
	Issuer        string
	ClientID      string
	HMACSecret    string
	AllowInsecure bool
}

type BootstrapConfig struct {
	Timeout      time.Duration
	ProfileFetch time.Duration
}

type ActivityConfig struct {
	PrimaryFactor  int
	FallbackFactor int
}

// ControlConfig configures the local control API. An empty Addr disables it.
type ControlConfig struct {
	Addr           string
	SignInRPS      float64
	SignInBurst    int
	RateLimitRedis bool
	RateWindow     time.Duration
}

// ArchiveConfig points at the S3-compatible bucket activity exports go to.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
	// Schedule is a cron expression with seconds; empty disables daily exports.
	Schedule string
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("MONGODB_DATABASE", "tourneyhub")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("MONGODB_PROFILES_COLLECTION", "users")
	v.SetDefault("MONGODB_ACTIVITY_COLLECTION", "activity_logs")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PREFS_PREFIX", "prefs:")
	v.SetDefault("ALLOW_INSECURE_TOKEN", false)
	v.SetDefault("BOOTSTRAP_TIMEOUT_MS", 5000)
	v.SetDefault("PROFILE_FETCH_TIMEOUT_MS", 8000)
	v.SetDefault("ACTIVITY_PRIMARY_FACTOR", 3)
	v.SetDefault("ACTIVITY_FALLBACK_FACTOR", 5)
	v.SetDefault("CONTROL_ADDR", "127.0.0.1:8090")
	v.SetDefault("SIGNIN_RATE_LIMIT_RPS", 0.2)
	v.SetDefault("SIGNIN_RATE_LIMIT_BURST", 5)
	v.SetDefault("SIGNIN_RATE_LIMIT_REDIS", false)
	v.SetDefault("SIGNIN_RATE_LIMIT_WINDOW", 60)
	v.SetDefault("ARCHIVE_USE_SSL", false)
	v.SetDefault("ARCHIVE_BUCKET", "tourneyhub-activity")
	v.SetDefault("ARCHIVE_URL_EXPIRY_MINUTES", 60)

	cfg := &Config{
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dev:   v.GetBool("LOG_DEV"),
		},
		MongoDB: MongoDBConfig{
			URI:                v.GetString("MONGODB_URI"),
			Database:           v.GetString("MONGODB_DATABASE"),
			Timeout:            time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			ConnectAttempts:    v.GetInt("MONGODB_CONNECT_ATTEMPTS"),
			ProfilesCollection: v.GetString("MONGODB_PROFILES_COLLECTION"),
			ActivityCollection: v.GetString("MONGODB_ACTIVITY_COLLECTION"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("PREFS_PREFIX"),
		},
		Identity: IdentityConfig{
			Issuer:        v.GetString("OIDC_ISSUER"),
			ClientID:      v.GetString("OIDC_CLIENT_ID"),
			HMACSecret:    v.GetString("IDENTITY_HMAC_SECRET"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Bootstrap: BootstrapConfig{
			Timeout:      time.Duration(v.GetInt("BOOTSTRAP_TIMEOUT_MS")) * time.Millisecond,
			ProfileFetch: time.Duration(v.GetInt("PROFILE_FETCH_TIMEOUT_MS")) * time.Millisecond,
		},
		Activity: ActivityConfig{
			PrimaryFactor:  v.GetInt("ACTIVITY_PRIMARY_FACTOR"),
			FallbackFactor: v.GetInt("ACTIVITY_FALLBACK_FACTOR"),
		},
		Control: ControlConfig{
			Addr:           v.GetString("CONTROL_ADDR"),
			SignInRPS:      v.GetFloat64("SIGNIN_RATE_LIMIT_RPS"),
			SignInBurst:    v.GetInt("SIGNIN_RATE_LIMIT_BURST"),
			RateLimitRedis: v.GetBool("SIGNIN_RATE_LIMIT_REDIS"),
			RateWindow:     time.Duration(v.GetInt("SIGNIN_RATE_LIMIT_WINDOW")) * time.Second,
		},
		Archive: ArchiveConfig{
			Endpoint:  v.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: v.GetString("ARCHIVE_ACCESS_KEY"),
			SecretKey: v.GetString("ARCHIVE_SECRET_KEY"),
			UseSSL:    v.GetBool("ARCHIVE_USE_SSL"),
			Bucket:    v.GetString("ARCHIVE_BUCKET"),
			URLExpiry: time.Duration(v.GetInt("ARCHIVE_URL_EXPIRY_MINUTES")) * time.Minute,
			Schedule:  v.GetString("ARCHIVE_SCHEDULE"),
		},
	}
	return cfg, nil
}
