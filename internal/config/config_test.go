package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, affordability.DefaultParams(), cfg.Affordability)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "@daily", cfg.Server.RecurringSchedule)
	assert.False(t, cfg.Server.TLS)
	assert.Equal(t, "default", cfg.User)
	assert.Zero(t, cfg.Simulation.Seed)
	assert.True(t, strings.HasSuffix(cfg.Database.Path, filepath.Join(".local", "share", "dreambuilder", "dreambuilder.db")))
	assert.NotContains(t, cfg.Database.Path, "$HOME")
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
logging:
  level: DEBUG
  format: json
database:
  path: /tmp/db.sqlite
simulation:
  seed: 42
calendar:
  timezone: Europe/Zurich
affordability:
  debt_to_income: 0.3
  annual_interest_rate: 0.05
  loan_term_years: 25
  equity_ratio: 0.25
server:
  addr: 127.0.0.1:9000
  recurring_schedule: "0 6 * * *"
  tls: true
user: ada
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/db.sqlite", cfg.Database.Path)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 0.3, cfg.Affordability.DebtToIncome)
	assert.Equal(t, 25, cfg.Affordability.LoanTermYears)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.TLS)
	assert.Equal(t, "ada", cfg.User)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Zurich", loc.String())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DREAMBUILDER_USER", "from-env")

	v := viper.New()
	v.SetEnvPrefix("DREAMBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.User)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	v := viper.New()
	v.Set("logging.level", "loud")
	v.Set("logging.format", "xml")
	v.Set("calendar.timezone", "Mars/Olympus")
	v.Set("affordability.loan_term_years", 0)
	v.Set("server.recurring_schedule", "whenever")

	_, err := Load(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
	msg := err.Error()
	for _, want := range []string{"loud", "xml", "Mars/Olympus", "whenever"} {
		assert.Contains(t, msg, want)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("DB_DIR", "/data")
	t.Setenv("DB_IN_HOME", "~/dreams")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/dreambuilder.db", want: filepath.Join(home, "dreambuilder.db")},
		{in: "$DB_DIR/dreambuilder.db", want: "/data/dreambuilder.db"},
		{in: "$DB_IN_HOME/dreambuilder.db", want: filepath.Join(home, "dreams", "dreambuilder.db")},
		{in: "~alice/dreambuilder.db", want: "~alice/dreambuilder.db"},
		{in: "/var/lib/dreambuilder.db", want: "/var/lib/dreambuilder.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoad_ExpandsDatabasePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	v := viper.New()
	v.Set("database.path", "~/budget/dreambuilder.db")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "budget", "dreambuilder.db"), cfg.Database.Path)
}
