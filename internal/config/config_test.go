package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxScore)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.Production())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"JWT_SECRET":      "s3cret",
		"ADDR":            ":9000",
		"ENV":             "production",
		"MAX_SCORE":       "11",
		"ALLOWED_ORIGINS": "localhost:*, example.com ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 11, cfg.MaxScore)
	assert.Equal(t, []string{"localhost:*", "example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Production())
}

func TestFromEnv_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"bad max score", map[string]string{"JWT_SECRET": "x", "MAX_SCORE": "zero"}},
		{"negative tick rate", map[string]string{"JWT_SECRET": "x", "TICK_RATE": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tc.env))
			assert.Error(t, err)
		})
	}
}
