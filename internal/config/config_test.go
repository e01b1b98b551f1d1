package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "pds-auth", cfg.JWTIssuer)
	assert.Equal(t, "15m", cfg.JWTAccessTTL)
	assert.Equal(t, "168h", cfg.JWTRefreshTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, SessionStorePostgres, cfg.SessionStore)
	assert.Equal(t, "pds-auth-events", cfg.TelemetryKafkaTopic)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("JWT_ISSUER", "custom-issuer")
	t.Setenv("BCRYPT_COST", "14")
	t.Setenv("SESSION_STORE", "Redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "custom-issuer", cfg.JWTIssuer)
	assert.Equal(t, 14, cfg.BcryptCost)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "32"}},
		{"equal secrets", map[string]string{"JWT_ACCESS_SECRET": "same", "JWT_REFRESH_SECRET": "same"}},
		{"production without secrets", map[string]string{"APP_ENV": "production"}},
		{"unknown session store", map[string]string{"SESSION_STORE": "memcached"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionWithSecrets(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "5m", JWTRefreshTTL: "48h", SweepInterval: "30s"}
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 48*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 30*time.Second, cfg.SweepEvery())

	bad := &Config{JWTAccessTTL: "soon", JWTRefreshTTL: "-1h", SweepInterval: ""}
	assert.Equal(t, 15*time.Minute, bad.AccessTTL())
	assert.Equal(t, 168*time.Hour, bad.RefreshTTL())
	assert.Equal(t, 10*time.Minute, bad.SweepEvery())
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	var nilCfg *Config
	assert.Nil(t, nilCfg.TelemetryKafkaBrokersList())

	cfg := &Config{TelemetryKafkaBrokers: " a:9092, ,b:9092 "}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.TelemetryKafkaBrokersList())
}
