package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadAllowedOriginsDefault(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com,")

	cfg := Load()

	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		cfg.AllowedOrigins)
}
