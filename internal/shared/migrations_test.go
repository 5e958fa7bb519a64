package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		require.NoError(t, err)
		require.NotEmpty(t, migrations)

		for i := 1; i < len(migrations); i++ {
			assert.Greater(t, migrations[i].Version, migrations[i-1].Version, "migrations sorted by version")
		}
		for _, m := range migrations {
			assert.NotEmpty(t, m.Up, "migration %d up", m.Version)
			assert.NotEmpty(t, m.Down, "migration %d down", m.Version)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := OpenArchiveDatabase(DatabaseConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer db.Close()

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Positive(t, count)

		_, err = db.Exec("SELECT 1 FROM archive_entries LIMIT 1")
		assert.NoError(t, err, "archive_entries exists after migrations")

		var seq int
		assert.NoError(t, db.QueryRow("SELECT value FROM archive_entries_sequence WHERE id = 1").Scan(&seq),
			"sequence row is seeded")

		require.NoError(t, RollbackMigration(db))

		var after int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&after))
		assert.Less(t, after, count)

		_, err = db.Exec("SELECT 1 FROM archive_entries LIMIT 1")
		assert.Error(t, err, "archive_entries is gone after rollback")

		assert.Error(t, RollbackMigration(db), "rollback with nothing applied fails")
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := OpenArchiveDatabase(DatabaseConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, RunMigrations(db))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))

		migrations, _ := loadMigrations()
		assert.Equal(t, len(migrations), count)
	})
}

func TestSplitStatements(t *testing.T) {
	script := `-- leading comment
CREATE TABLE a (id INTEGER); -- trailing
CREATE TABLE b (id INTEGER);

`
	got := splitStatements(script)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INTEGER)", got[0])
}
