// Package config loads runtime configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings every module is constructed from.
type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	StoragePath     string

	Auth      AuthConfig
	Friends   StoreConfig
	Chat      StoreConfig
	RateLimit RateLimitConfig
	Discord   DiscordConfig
}

// AuthConfig configures the auth module.
type AuthConfig struct {
	DBPath     string
	DBDebug    bool
	SecretKey  string
	Issuer     string
	AdminUsers []string
}

// StoreConfig configures a module backed by its own sqlite file.
type StoreConfig struct {
	DBPath  string
	DBDebug bool
}

// RateLimitConfig configures the redis sliding window limiter.
type RateLimitConfig struct {
	Enabled           bool
	RedisAddr         string
	RequestsPerWindow int
	WindowSize        time.Duration
}

// DiscordConfig configures the optional room mirror.
type DiscordConfig struct {
	WebhookURL string
	MirrorRoom string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using process environment")
	} else {
		log.Println("[config] Loaded .env file")
	}

	dbDebug := getEnvBool("DB_DEBUG", false)

	return &Config{
		Port:            getEnv("PORT", "3000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		StoragePath:     getEnv("STORAGE_PATH", "/tmp/chat-server"),
		Auth: AuthConfig{
			DBPath:     getEnv("AUTH_DB_PATH", "auth.db"),
			DBDebug:    dbDebug,
			SecretKey:  getEnv("JWT_SECRET_KEY", "change-me-in-production"),
			Issuer:     getEnv("JWT_ISSUER", "chat-server"),
			AdminUsers: splitList(os.Getenv("ADMIN_USERS")),
		},
		Friends: StoreConfig{
			DBPath:  getEnv("FRIENDS_DB_PATH", "friends.db"),
			DBDebug: dbDebug,
		},
		Chat: StoreConfig{
			DBPath:  getEnv("CHAT_DB_PATH", "chat.db"),
			DBDebug: dbDebug,
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
			RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 120),
			WindowSize:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Discord: DiscordConfig{
			WebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
			MirrorRoom: getEnv("DISCORD_MIRROR_ROOM", "general"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[config] Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[config] Invalid boolean for %s=%q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[config] Invalid duration for %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// splitList parses a comma separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
