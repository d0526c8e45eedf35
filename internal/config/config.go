package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"galhub/pkg/database"
)

const (
	envPrefix = "GALHUB"

	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultSyncAddress   = "0.0.0.0:9090"
	defaultLogLevel      = "info"
	defaultJWTIssuer     = "galhub"
	defaultJWTTTL        = 24 * time.Hour
	defaultTokenCacheTTL = 5 * time.Minute
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	SyncAddress   string
	DatabasePath  string
	LogLevel      string
	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	TokenCacheTTL time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper
// instance. Keys map to env vars with the GALHUB_ prefix, e.g. jwt.secret
// becomes GALHUB_JWT_SECRET.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.address", defaultHTTPAddress)
	v.SetDefault("sync.address", defaultSyncAddress)
	v.SetDefault("database.path", database.DefaultConfig().Path)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("jwt.issuer", defaultJWTIssuer)
	v.SetDefault("jwt.ttl", defaultJWTTTL)
	v.SetDefault("source.token_cache_ttl", defaultTokenCacheTTL)
}

// Load parses runtime configuration from viper.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   v.GetString("http.address"),
		SyncAddress:   v.GetString("sync.address"),
		DatabasePath:  v.GetString("database.path"),
		LogLevel:      v.GetString("log.level"),
		JWTSecret:     v.GetString("jwt.secret"),
		JWTIssuer:     v.GetString("jwt.issuer"),
		JWTTTL:        v.GetDuration("jwt.ttl"),
		TokenCacheTTL: v.GetDuration("source.token_cache_ttl"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive")
	}
	if c.TokenCacheTTL <= 0 {
		return fmt.Errorf("source.token_cache_ttl must be positive")
	}
	return nil
}
