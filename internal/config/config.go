package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	RedisHost      string
	RedisPort      string
	SessionSecret  string
	GinMode        string
	UploadDir      string
	AllowedOrigins []string
}

func Load() *Config {
	// Optional; real deployments set env vars directly
	_ = godotenv.Load()

	return &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "taskdeck"),
		DBPassword:     getEnv("DB_PASSWORD", "taskdeck"),
		DBName:         getEnv("DB_NAME", "taskdeck"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		SessionSecret:  getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
