package database

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chifascan/scanner/internal/model"
)

// pointPostgresAtNothing aims the DSN at a port nothing listens on so
// Connect exercises the SQLite fallback.
func pointPostgresAtNothing(t *testing.T) {
	t.Helper()
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "vignettes")
	t.Cleanup(func() {
		viper.Set("db.host", "localhost")
		viper.Set("db.port", "5432")
	})
}

func TestManager_ConnectFallsBackToSqlite(t *testing.T) {
	pointPostgresAtNothing(t)

	mgr := NewManager(zerolog.Nop())
	require.NoError(t, mgr.Connect())
	assert.True(t, mgr.IsValid)
	assert.True(t, mgr.ShouldSaveLocal)
}

func TestManager_SetupSeedsStationInfo(t *testing.T) {
	pointPostgresAtNothing(t)
	viper.Set("station.name", "pharmacie-centrale")
	viper.Set("station.location", "comptoir 2")

	mgr := NewManager(zerolog.Nop())
	require.NoError(t, mgr.Connect())

	// The in-memory store is shared; start from a clean slate.
	require.NoError(t, mgr.DB.Migrator().DropTable(&model.ScannerInfo{}))
	require.NoError(t, mgr.Setup())

	var info model.ScannerInfo
	require.NoError(t, mgr.DB.First(&info).Error)
	assert.Equal(t, "pharmacie-centrale", info.StationName)
	assert.Equal(t, "comptoir 2", info.Location)

	// A second run must not add another row.
	require.NoError(t, mgr.Setup())
	var count int64
	require.NoError(t, mgr.DB.Model(&model.ScannerInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestManager_DumpMemoryToDisk(t *testing.T) {
	pointPostgresAtNothing(t)

	mgr := NewManager(zerolog.Nop())
	require.NoError(t, mgr.Connect())
	require.NoError(t, mgr.Setup())

	mgr.SqliteFilePath = t.TempDir() + "/journal.db"
	require.NoError(t, mgr.DumpMemoryToDisk())

	fi, err := os.Stat(mgr.SqliteFilePath)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))
}
