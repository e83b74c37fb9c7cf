package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "booking-core", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 0.10, cfg.Booking.TaxRate)
	assert.Equal(t, 24*time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, 3, cfg.Booking.TxMaxRetries)
	assert.Equal(t, 100, cfg.Booking.SweepBatchSize)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadWithPath_EmptyPath(t *testing.T) {
	_, err := LoadWithPath("")
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		DBName:   "booking",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=booking sslmode=require",
		d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app name",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "DATABASE_HOST",
		},
		{
			name:    "default secret in production",
			mutate:  func(c *Config) { c.App.Environment = "production" },
			wantErr: "JWT secret must be changed",
		},
		{
			name:    "tax rate at or above one",
			mutate:  func(c *Config) { c.Booking.TaxRate = 1.0 },
			wantErr: "invalid tax rate",
		},
		{
			name:    "negative tax rate",
			mutate:  func(c *Config) { c.Booking.TaxRate = -0.05 },
			wantErr: "invalid tax rate",
		},
		{
			name:    "non-positive hold TTL",
			mutate:  func(c *Config) { c.Booking.HoldTTL = 0 },
			wantErr: "hold TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
