package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add receipt allocations", "add_receipt_allocations"},
		{"Add-Period-Locks", "add_period_locks"},
		{"INDEX_RECEIPTS_BY_CUSTOMER", "index_receipts_by_customer"},
		{"widen__amount__columns", "widen_amount_columns"},
		{"Audit Retention 90d", "audit_retention_90d"},
		{"   spaces   ", "spaces"},
		{"drop!@#$view", "dropview"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matching up/down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add receipt allocations", "Join table linking receipts to invoices")
		require.NoError(t, err)

		assert.Len(t, mf.Version, 14)
		assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))
		assert.Equal(t,
			strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
			strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add receipt allocations")
		assert.Contains(t, string(up), "Join table linking receipts to invoices")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "rollback")
		assert.Contains(t, string(down), "Reverts: Join table linking receipts to invoices")
	})

	t.Run("creates the migrations directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db", "migrations")

		mf, err := CreateMigration(dir, "init schema", "Initial ledger schema")
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		_, err = os.Stat(mf.UpPath)
		assert.NoError(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	seed := func(t *testing.T, dir string, names ...string) {
		t.Helper()
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0644))
		}
	}

	t.Run("returns pairs once in version order", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir,
			"000002_add_receipts.up.sql",
			"000002_add_receipts.down.sql",
			"000001_init_schema.up.sql",
			"000001_init_schema.down.sql",
			"000003_add_period_locks.up.sql",
			"000003_add_period_locks.down.sql",
		)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_init_schema",
			"000002_add_receipts",
			"000003_add_period_locks",
		}, migrations)
	})

	t.Run("treats a missing directory as empty", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "does-not-exist"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("skips files that are not up migrations", func(t *testing.T) {
		dir := t.TempDir()
		seed(t, dir,
			"000001_init.up.sql",
			"000001_init.down.sql",
			"README.md",
			".gitkeep",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, migrations)
	})
}
