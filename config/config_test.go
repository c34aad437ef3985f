package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ExpandsEnvAndDecodesDecimals(t *testing.T) {
	// GIVEN: a config with env placeholders and quoted prices
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	yml := `
server:
  port: 8081
timezone: "Europe/Moscow"
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
  rate_per_second: 5
redis:
  address: "localhost:6379"
  settings_ttl_seconds: 120
pricing:
  transfer:
    comfort_planned: "200"
    comfort_urgent: "300.50"
    business_planned: "250"
    business_urgent: "350"
    van_planned: "300"
    van_urgent: "400"
`

	// WHEN
	cfg, err := Parse([]byte(yml))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, ":8081", cfg.Addr())
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "123:abc", cfg.NotifyConfig().Token)
	assert.Equal(t, 5.0, cfg.NotifyConfig().Rate)
	assert.Equal(t, 2*time.Minute, cfg.SettingsTTL())
	assert.True(t, decimal.RequireFromString("300.5").Equal(cfg.Pricing.Transfer.ComfortUrgent))
	assert.True(t, decimal.NewFromInt(400).Equal(cfg.Pricing.Transfer.VanUrgent))
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/carwash.db", cfg.Database.Path)
	assert.Equal(t, "Europe/Moscow", cfg.Timezone)
	assert.Equal(t, time.Hour, cfg.SyncInterval())
	assert.Equal(t, ":9090", cfg.MetricsAddr())
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Pricing.Transfer.ComfortPlanned.IsZero())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"bad yaml", "server: [", "parse config"},
		{"port range", "server:\n  port: 70000\n", "server.port"},
		{"unknown timezone", "timezone: Mars/Olympus\n", "timezone"},
		{"sheets without credentials", "sheets:\n  enabled: true\n", "sheets.enabled"},
		{"metrics port clash", "server:\n  port: 9000\nmetrics:\n  enabled: true\n  port: 9000\n", "metrics.port"},
		{"negative price", "pricing:\n  transfer:\n    van_urgent: \"-1\"\n", "van_urgent"},
		{"price not a number", "pricing:\n  transfer:\n    van_urgent: \"abc\"\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	// GIVEN: a working directory with a config file and no .env
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: \""+filepath.Join(dir, "db", "x.db")+"\"\n"), 0o600))

	// WHEN
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN
	require.NoError(t, cfg.EnsureDataDir())
	info, err := os.Stat(filepath.Join(dir, "db"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CARWASH_TEST_TZ", "")
	os.Unsetenv("CARWASH_TEST_TZ")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CARWASH_TEST_TZ=Asia/Yekaterinburg\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("timezone: \"${CARWASH_TEST_TZ}\"\n"), 0o600))

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Yekaterinburg", cfg.Timezone)
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working directory
// and restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
