package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Google    GoogleConfig
	Discord   DiscordConfig
	Forecast  ForecastConfig
	Turnstile TurnstileConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Development reports whether the service runs in development mode.
func (s ServerConfig) Development() bool {
	return s.Environment == "" || s.Environment == "development"
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

type GoogleConfig struct {
	ClientID string
	Issuer   string
}

type DiscordConfig struct {
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	FrontendCallbackURL string
	APIBaseURL          string
}

// Enabled reports whether the code exchange can be performed.
func (d DiscordConfig) Enabled() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

type ForecastConfig struct {
	WakeURL     string
	WakeTimeout time.Duration
}

type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "pennywise")
	viper.SetDefault("MONGODB_COLLECTION", "users")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_CACHE_TTL", "1m")
	viper.SetDefault("JWT_EXPIRES_IN", "7d")
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("GOOGLE_ISSUER", "https://accounts.google.com")
	viper.SetDefault("DISCORD_API_BASE_URL", "https://discord.com/api")
	viper.SetDefault("FORECAST_WAKE_TIMEOUT", "60s")
	viper.SetDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	expiresIn, err := ParseLifetime(viper.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			Host:            viper.GetString("SERVER_HOST"),
			Environment:     viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:        viper.GetString("MONGODB_URI"),
			Database:   viper.GetString("MONGODB_DATABASE"),
			Collection: viper.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("REDIS_CACHE_TTL"),
		},
		JWT: JWTConfig{
			Secret:    os.Getenv("JWT_SECRET"),
			ExpiresIn: expiresIn,
		},
		Password: PasswordConfig{
			BcryptCost: viper.GetInt("BCRYPT_COST"),
		},
		Google: GoogleConfig{
			ClientID: viper.GetString("GOOGLE_CLIENT_ID"),
			Issuer:   viper.GetString("GOOGLE_ISSUER"),
		},
		Discord: DiscordConfig{
			ClientID:            viper.GetString("DISCORD_CLIENT_ID"),
			ClientSecret:        os.Getenv("DISCORD_CLIENT_SECRET"),
			RedirectURI:         viper.GetString("DISCORD_REDIRECT_URI"),
			FrontendCallbackURL: viper.GetString("DISCORD_FRONTEND_CALLBACK_URL"),
			APIBaseURL:          viper.GetString("DISCORD_API_BASE_URL"),
		},
		Forecast: ForecastConfig{
			WakeURL:     viper.GetString("FORECAST_WAKE_URL"),
			WakeTimeout: viper.GetDuration("FORECAST_WAKE_TIMEOUT"),
		},
		Turnstile: TurnstileConfig{
			SecretKey: os.Getenv("TURNSTILE_SECRET_KEY"),
			VerifyURL: viper.GetString("TURNSTILE_VERIFY_URL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if cfg.JWT.Secret == "" && !cfg.Server.Development() {
		return nil, fmt.Errorf("JWT_SECRET is required in %s", cfg.Server.Environment)
	}

	return cfg, nil
}

// ParseLifetime accepts a Go duration ("168h") or a day count ("7d").
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("lifetime must be positive, got %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
