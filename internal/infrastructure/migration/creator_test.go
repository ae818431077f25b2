package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add scan events":    "add_scan_events",
		"Add-Backfill-Key":   "add_backfill_key",
		"add__item__status":  "add_item_status",
		"   spaces   ":       "spaces",
		"special!@#$chars":   "specialchars",
		"_leading_trailing_": "leading_trailing",
		"":                   "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, sanitizeName(in))
		})
	}
}

func TestCreateMigration_Sequence(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create attribution tables", "stations, items, events")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.FileExists(t, first.UpPath)
	assert.FileExists(t, first.DownPath)

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "stations, items, events")

	second, err := CreateMigration(dir, "add backfill key", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
	assert.Equal(t, "000002_add_backfill_key.up.sql", filepath.Base(second.UpPath))

	list, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_attribution_tables", "000002_add_backfill_key"}, list)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	list, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	abs, err := ResolvePath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, abs)

	fallback, err := ResolvePath("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(fallback))
}
