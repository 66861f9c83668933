package db_test

import (
	"path/filepath"
	"testing"

	"acsync/internal/domain"
	"acsync/internal/storage/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, database.Close())
	})
	return database
}

func TestNew_RunsMigrations(t *testing.T) {
	database := setupTestDB(t)

	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM installed_mods").Scan(&count))
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&count))

	var version int
	require.NoError(t, database.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", db.FileName)

	first, err := db.New(path)
	require.NoError(t, err)
	require.NoError(t, first.MarkInstalled("abc"))
	require.NoError(t, first.Close())

	second, err := db.New(path)
	require.NoError(t, err)
	defer second.Close()

	installed, err := second.IsInstalled("abc")
	require.NoError(t, err)
	assert.True(t, installed, "migrations must not run twice or wipe data")
}

func TestInstalled_MarkAndCheck(t *testing.T) {
	database := setupTestDB(t)

	installed, err := database.IsInstalled("ddf7cb7a")
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, database.MarkInstalled("ddf7cb7a"))

	installed, err = database.IsInstalled("ddf7cb7a")
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestInstalled_MarkIsIdempotent(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.MarkInstalled("a"))
	before, err := database.ListInstalled()
	require.NoError(t, err)

	require.NoError(t, database.MarkInstalled("a"))
	after, err := database.ListInstalled()
	require.NoError(t, err)

	require.Len(t, after, 1)
	assert.Equal(t, before, after, "second mark must not touch the row")
}

func TestInstalled_Unmark(t *testing.T) {
	database := setupTestDB(t)
	require.NoError(t, database.MarkInstalled("a"))

	require.NoError(t, database.UnmarkInstalled("a"))
	installed, err := database.IsInstalled("a")
	require.NoError(t, err)
	assert.False(t, installed)

	err = database.UnmarkInstalled("a")
	assert.ErrorIs(t, err, domain.ErrModNotFound)
}

func TestInstalled_List(t *testing.T) {
	database := setupTestDB(t)

	mods, err := database.ListInstalled()
	require.NoError(t, err)
	assert.Empty(t, mods)

	require.NoError(t, database.MarkInstalled("b"))
	require.NoError(t, database.MarkInstalled("a"))

	mods, err = database.ListInstalled()
	require.NoError(t, err)
	require.Len(t, mods, 2)

	var checksums []string
	for _, m := range mods {
		checksums = append(checksums, m.Checksum)
		assert.False(t, m.InstalledAt.IsZero())
	}
	assert.ElementsMatch(t, []string{"a", "b"}, checksums)
}

func TestCredentials_SaveGetDelete(t *testing.T) {
	database := setupTestDB(t)
	const server = "https://acsync.team8.pl"

	creds, err := database.GetCredentials(server)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, database.SaveCredentials(server, "driver", "secret"))
	creds, err = database.GetCredentials(server)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "driver", creds.Login)
	assert.Equal(t, "secret", creds.Password)
	assert.False(t, creds.UpdatedAt.IsZero())

	require.NoError(t, database.SaveCredentials(server, "driver2", "other"))
	creds, err = database.GetCredentials(server)
	require.NoError(t, err)
	assert.Equal(t, "driver2", creds.Login)

	other, err := database.GetCredentials("http://localhost:8000")
	require.NoError(t, err)
	assert.Nil(t, other, "credentials are per server")

	require.NoError(t, database.DeleteCredentials(server))
	creds, err = database.GetCredentials(server)
	require.NoError(t, err)
	assert.Nil(t, creds)
}
