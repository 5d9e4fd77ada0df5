package storage

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charge-telemetry/backend/internal/models"
)

func testLogs() []models.LogResource {
	return []models.LogResource{
		{Name: "charge", File: "charge.asc"},
		{Name: "supercharge", File: "super.asc"},
		{Name: "remote", File: "/srv/traces/remote.asc"},
	}
}

func TestNewCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("defaults to first log", func(t *testing.T) {
		c, err := NewCatalog(fs, "/data", "tesla.dbc", "", testLogs())
		require.NoError(t, err)
		assert.Equal(t, "charge", c.DefaultLog())
		assert.Equal(t, []string{"charge", "supercharge", "remote"}, c.Names())
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		_, err := NewCatalog(fs, "/data", "tesla.dbc", "", nil)
		assert.Error(t, err)

		_, err = NewCatalog(fs, "/data", "tesla.dbc", "", []models.LogResource{{Name: "a", File: "a"}, {Name: "a", File: "b"}})
		assert.ErrorContains(t, err, "duplicate")

		_, err = NewCatalog(fs, "/data", "tesla.dbc", "", []models.LogResource{{Name: "", File: "a"}})
		assert.Error(t, err)

		_, err = NewCatalog(fs, "/data", "tesla.dbc", "missing", testLogs())
		assert.ErrorContains(t, err, "missing")
	})
}

func TestCatalog_Resolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/charge.asc", []byte("// empty\n"), 0644))
	require.NoError(t, fs.MkdirAll("/data/super.asc", 0755))

	c, err := NewCatalog(fs, "/data", "tesla.dbc", "supercharge", testLogs())
	require.NoError(t, err)

	path, ok := c.LogPath("charge")
	require.True(t, ok)
	assert.Equal(t, "/data/charge.asc", path)

	path, ok = c.LogPath("remote")
	require.True(t, ok)
	assert.Equal(t, "/srv/traces/remote.asc", path)

	_, ok = c.LogPath("nope")
	assert.False(t, ok)

	assert.Equal(t, "/data/tesla.dbc", c.SignalDBPath())
	assert.False(t, c.Exists(c.SignalDBPath()))

	statuses := c.LogStatuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, models.LogFileStatus{Filename: "charge.asc", Path: "/data/charge.asc", Exists: true}, statuses["charge"])
	assert.False(t, statuses["supercharge"].Exists, "directories are not logs")
	assert.False(t, statuses["remote"].Exists)
}

func TestLoadManifest(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/etc/logs.yaml", []byte(`
logs:
  - name: charge
    file: Model3Log2019-01-13LowTempDriveCharge.asc
    description: Low temperature drive and charge
  - name: supercharge
    file: Model3Log2019-01-19supercharge.asc
`), 0644))

		logs, err := LoadManifest(fs, "/etc/logs.yaml")
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "charge", logs[0].Name)
		assert.Equal(t, "Low temperature drive and charge", logs[0].Description)
		assert.Equal(t, "Model3Log2019-01-19supercharge.asc", logs[1].File)
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/etc/empty.yaml", []byte("logs: []\n"), 0644))
		_, err := LoadManifest(fs, "/etc/empty.yaml")
		assert.ErrorContains(t, err, "no logs")
	})

	t.Run("malformed", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/etc/bad.yaml", []byte("logs: [\n"), 0644))
		_, err := LoadManifest(fs, "/etc/bad.yaml")
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadManifest(fs, "/etc/none.yaml")
		assert.Error(t, err)
	})
}
