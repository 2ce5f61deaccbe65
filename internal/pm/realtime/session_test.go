package realtime

import (
	"io/fs"
	"strings"
	"testing"

	"fieldservice_backend/platform/db"

	"github.com/stretchr/testify/require"
)

// The subscription channel is pinned to the pg_notify call in the trigger
// migration. If the two ever drift the listener silently receives nothing,
// so this test ties them together.
func TestChangeChannelMatchesNotifyTrigger(t *testing.T) {
	migration, err := fs.ReadFile(db.Migrations(), "migrations/00003_pm_visits_notify.sql")
	require.NoError(t, err)

	require.Contains(t, string(migration), "pg_notify('"+changeChannel+"'",
		"pm_visits trigger must publish on the channel the session manager subscribes to")

	for _, entry := range mustReadDir(t, db.Migrations(), "migrations") {
		if entry.Name() == "00003_pm_visits_notify.sql" {
			continue
		}
		contents, err := fs.ReadFile(db.Migrations(), "migrations/"+entry.Name())
		require.NoError(t, err)
		require.False(t, strings.Contains(string(contents), "pg_notify"),
			"unexpected pg_notify in %s", entry.Name())
	}
}

func mustReadDir(t *testing.T, fsys fs.FS, dir string) []fs.DirEntry {
	t.Helper()
	entries, err := fs.ReadDir(fsys, dir)
	require.NoError(t, err)
	return entries
}
