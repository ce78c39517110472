package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresPlacesKey(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLACES_API_KEY")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PLACES_API_KEY", "k")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", c.Addr())
	assert.Equal(t, "file", c.RecordStore)
	assert.Equal(t, "local", c.MediaBackend)
	assert.Equal(t, 10*time.Second, c.UpstreamTimeout)
	assert.Equal(t, time.Duration(0), c.DetailsCacheTTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dishmap.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 8081
places_api_key = "from-file"
record_store = "sqlite"
media_workers = 2
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PLACES_API_KEY", "")
	t.Setenv("PORT", "9000")
	t.Setenv("DETAILS_CACHE_TTL_SECONDS", "60")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.PlacesKey)
	assert.Equal(t, "sqlite", c.RecordStore)
	assert.Equal(t, 2, c.MediaWorkers)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, time.Minute, c.DetailsCacheTTL)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PLACES_API_KEY", "k")
	t.Setenv("RECORD_STORE", "cassandra")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MySQLNeedsDSN(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PLACES_API_KEY", "k")
	t.Setenv("RECORD_STORE", "mysql")
	t.Setenv("MYSQL_DSN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadStorage_KeyOptional(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RECORD_STORE", "sqlite")

	c, err := LoadStorage()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.RecordStore)

	t.Setenv("RECORD_STORE", "etcd")
	_, err = LoadStorage()
	assert.Error(t, err)
}
