package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.Set("postgres.dsn", "postgres://localhost/timetrack")
	v.Set("security.jwtaccesssecret", "access-secret")
	v.Set("security.jwtrefreshsecret", "refresh-secret")
	return v
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := decode(validViper())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Production())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Security.JWTRefreshTTL)
	assert.Equal(t, 5, cfg.Security.MaxLoginAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, uint32(3), cfg.Security.Password.Time)
	assert.Equal(t, 5*time.Second, cfg.Postgres.StatementTimeout)
	assert.Equal(t, "timetrack-reports", cfg.Storage.BucketReports)
	assert.Equal(t, "UTC", cfg.Tracking.Timezone)
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		message string
	}{
		{
			name:    "missing dsn",
			mutate:  func(v *viper.Viper) { v.Set("postgres.dsn", "") },
			message: "postgres.dsn is required",
		},
		{
			name:    "missing secrets",
			mutate:  func(v *viper.Viper) { v.Set("security.jwtrefreshsecret", "") },
			message: "are required",
		},
		{
			name: "shared secret",
			mutate: func(v *viper.Viper) {
				v.Set("security.jwtrefreshsecret", "access-secret")
			},
			message: "must differ",
		},
		{
			name:    "bad timezone",
			mutate:  func(v *viper.Viper) { v.Set("tracking.timezone", "Mars/Olympus") },
			message: "load timezone",
		},
		{
			name:    "no lockout threshold",
			mutate:  func(v *viper.Viper) { v.Set("security.maxloginattempts", 0) },
			message: "maxloginattempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			tt.mutate(v)

			_, err := decode(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TIMETRACK_SECURITY_JWTREFRESHSECRET=from-dotenv\n"), 0o600))

	t.Cleanup(func() { os.Unsetenv("TIMETRACK_SECURITY_JWTREFRESHSECRET") })
	t.Setenv("TIMETRACK_ENV_FILE", envFile)
	t.Setenv("TIMETRACK_POSTGRES_DSN", "postgres://db/timetrack")
	t.Setenv("TIMETRACK_SECURITY_JWTACCESSSECRET", "from-env")
	t.Setenv("TIMETRACK_SECURITY_LOCKOUTDURATION", "45m")
	t.Setenv("TIMETRACK_TRACKING_TIMEZONE", "Europe/Berlin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/timetrack", cfg.Postgres.DSN)
	assert.Equal(t, "from-env", cfg.Security.JWTAccessSecret)
	assert.Equal(t, "from-dotenv", cfg.Security.JWTRefreshSecret)
	assert.Equal(t, 45*time.Minute, cfg.Security.LockoutDuration)

	loc, err := cfg.Tracking.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestTrackingLocationDefaultsToUTC(t *testing.T) {
	loc, err := TrackingConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
