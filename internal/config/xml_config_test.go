package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written on first run")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data/can"), cfg.CANData.DataDirectory)
	assert.Equal(t, "tesla.dbc", cfg.CANData.DBCFile)
	assert.Equal(t, 1000, cfg.Replay.SnapshotInterval)
	assert.Equal(t, 0.494, cfg.Replay.CarbonFactorKgPerKWh)
	assert.Equal(t, 10*time.Millisecond, cfg.YieldDuration())

	logs := cfg.LogResources()
	require.Len(t, logs, 3)
	assert.Equal(t, "charge", logs[0].Name)
	assert.Equal(t, "Model3Log2019-01-19superchargeend.asc", logs[2].File)
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg := DefaultConfig()
	cfg.Server.Port = 9000
	cfg.CANData.DataDirectory = "/srv/can"
	cfg.CANData.Logs = []LogEntry{{Name: "bench", File: "bench.asc"}}
	cfg.CANData.DefaultLog = "bench"
	cfg.Replay.SnapshotInterval = 250
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, loaded.Server.Port)
	assert.Equal(t, "/srv/can", loaded.CANData.DataDirectory)
	assert.Equal(t, []LogEntry{{Name: "bench", File: "bench.asc"}}, loaded.CANData.Logs)
	assert.Equal(t, 250, loaded.Replay.SnapshotInterval)
	assert.Equal(t, filepath.Join(dir, "data/ledger.duckdb"), loaded.Ledger.DSN)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<ChargeTelemetry><Server><Port>7000</Port></Server></ChargeTelemetry>`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Replay.SnapshotInterval)
	assert.Len(t, cfg.CANData.Logs, 3)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	t.Setenv("PORT", "9191")
	t.Setenv("CAN_DATA_DIR", "/mnt/traces")
	t.Setenv("LEDGER_DRIVER", "postgres")
	t.Setenv("LEDGER_DSN", "postgres://u:p@db/charge?sslmode=disable")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/mnt/traces", cfg.CANData.DataDirectory)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, "postgres://u:p@db/charge?sslmode=disable", cfg.Ledger.DSN)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(malformed, []byte("<ChargeTelemetry>"), 0644))
	_, err := LoadConfig(malformed)
	assert.Error(t, err)

	badInterval := filepath.Join(dir, "interval.xml")
	require.NoError(t, os.WriteFile(badInterval, []byte(`<ChargeTelemetry><Replay><SnapshotInterval>0</SnapshotInterval></Replay></ChargeTelemetry>`), 0644))
	_, err = LoadConfig(badInterval)
	assert.ErrorContains(t, err, "SnapshotInterval")

	badDriver := filepath.Join(dir, "driver.xml")
	require.NoError(t, os.WriteFile(badDriver, []byte(`<ChargeTelemetry><Ledger><Driver>oracle</Driver></Ledger></ChargeTelemetry>`), 0644))
	_, err = LoadConfig(badDriver)
	assert.ErrorContains(t, err, "oracle")
}

func TestGetServerAddr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:8089", cfg.GetServerAddr())
}

func TestCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg := DefaultConfig()
	cfg.CANData.DataDirectory = "/srv/can"

	catalog, err := cfg.Catalog(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"charge", "supercharge", "supercharge_end"}, catalog.Names())
	assert.Equal(t, "/srv/can/tesla.dbc", catalog.SignalDBPath())

	t.Run("manifest replaces inline logs", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/etc/logs.yaml", []byte("logs:\n  - name: charge\n    file: a.asc\n  - name: highway\n    file: /mnt/b.asc\n"), 0644))
		cfg.CANData.CatalogFile = "/etc/logs.yaml"

		catalog, err := cfg.Catalog(fs)
		require.NoError(t, err)
		assert.Equal(t, []string{"charge", "highway"}, catalog.Names())
		path, ok := catalog.LogPath("highway")
		assert.True(t, ok)
		assert.Equal(t, "/mnt/b.asc", path)
	})

	t.Run("default log missing from manifest", func(t *testing.T) {
		cfg.CANData.DefaultLog = "city"
		_, err := cfg.Catalog(fs)
		assert.Error(t, err)
	})
}

func TestEngineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replay.SnapshotInterval = 50
	cfg.Replay.YieldMillis = 0
	cfg.Replay.PointsPerKgCarbon = 20

	opts := cfg.EngineOptions()
	assert.Equal(t, uint64(50), opts.SnapshotInterval)
	assert.Zero(t, opts.Yield)
	assert.Equal(t, 10.0, opts.MinEnergyKWh)
	assert.Equal(t, 120.0, opts.MaxEnergyKWh)
	assert.Equal(t, 0.494, opts.Calculator.CarbonFactorKgPerKWh)
	assert.Equal(t, 20.0, opts.Calculator.PointsPerKgCarbon)
}
