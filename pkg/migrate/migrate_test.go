package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gorm.io/driver/sqlite"

	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:migrate_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrationsApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, Run(ctx, db, config.DBDriverSQLite, "migrations", "up"))
	for _, table := range []string{
		"products", "locations", "inventory_units", "unit_scans",
		"transfer_packages", "transfer_items", "inventory_levels",
		"inventory_transactions", "outbox_events", "outbox_dlq",
	} {
		assert.True(t, tableExists(t, db, table), "missing table %s", table)
	}

	version, err := CurrentVersion(ctx, db, config.DBDriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(20260901120400), version)

	require.NoError(t, MigrateToVersion(ctx, db, config.DBDriverSQLite, "migrations", "20260901120100"))
	assert.True(t, tableExists(t, db, "inventory_units"))
	assert.False(t, tableExists(t, db, "transfer_packages"))
	assert.False(t, tableExists(t, db, "outbox_events"))
}

func TestInventoryUnitConstraints(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, Run(ctx, db, config.DBDriverSQLite, "migrations", "up"))

	product := uuid.NewString()
	location := uuid.NewString()
	_, err := db.Exec(`INSERT INTO products (id, name, sku) VALUES (?, 'Blue Dream', 'BD-1')`, product)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO locations (id, name, type) VALUES (?, 'Main', 'warehouse')`, location)
	require.NoError(t, err)

	insert := `INSERT INTO inventory_units (id, qr_code, tier_id, tier_label, quantity, initial_quantity,
		product_id, current_location_id, status, status_changed_at, source_type)
		VALUES (?, ?, 'bulk_ounce', 'Ounce', ?, 28.35, ?, ?, ?, CURRENT_TIMESTAMP, 'registration')`

	_, err = db.Exec(insert, uuid.NewString(), "B-00000001", 28.35, product, location, "available")
	require.NoError(t, err)

	_, err = db.Exec(insert, uuid.NewString(), "B-00000001", 28.35, product, location, "available")
	assert.Error(t, err, "duplicate qr code")

	_, err = db.Exec(insert, uuid.NewString(), "B-00000002", -1, product, location, "available")
	assert.Error(t, err, "negative quantity")

	_, err = db.Exec(insert, uuid.NewString(), "B-00000003", 30, product, location, "available")
	assert.Error(t, err, "quantity above initial")

	_, err = db.Exec(insert, uuid.NewString(), "B-00000004", 1, product, location, "lost")
	assert.Error(t, err, "unknown status")
}

func TestDialect(t *testing.T) {
	d, err := Dialect(config.DBDriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	d, err = Dialect(config.DBDriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d)

	_, err = Dialect("mysql")
	assert.Error(t, err)
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260901000000_add_payload.sql"), []byte(
		"-- +goose Up\n-- +goose StatementBegin\nALTER TABLE outbox_events ADD COLUMN seen_at timestamptz DEFAULT now();\n\n-- +goose Down\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
	assert.Contains(t, err.Error(), `"now()" is not portable to sqlite`)
	assert.Contains(t, err.Error(), "Down section starts inside an open statement block")
	assert.Contains(t, err.Error(), "unterminated StatementBegin")
}

func TestValidateDirAllowsSerialNumberColumns(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nALTER TABLE inventory_units ADD COLUMN serial_number text;\n-- +goose StatementEnd\n\n" +
		"-- +goose Down\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260901000000_add_serial.sql"), []byte(body), 0o644))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Bin Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_bin_index.sql"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "   ")
	assert.Error(t, err)
}

func TestCreateSQLMigrationRefusesOutOfOrderVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261015120000_add_levels.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	past := func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }
	_, err := createSQLMigration(dir, "late", past)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after latest migration")

	later := func() time.Time { return time.Date(2026, 10, 15, 12, 0, 1, 0, time.UTC) }
	path, err := createSQLMigration(dir, "next", later)
	require.NoError(t, err)
	assert.Equal(t, "20261015120001_next.sql", filepath.Base(path))
}

func TestShouldAutoRun(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = config.DBDriverSQLite
	assert.True(t, ShouldAutoRun(cfg))

	cfg.DB.Driver = config.DBDriverPostgres
	cfg.App.Env = "dev"
	assert.False(t, ShouldAutoRun(cfg))

	cfg.FeatureFlags.AutoMigrate = true
	assert.True(t, ShouldAutoRun(cfg))

	cfg.App.Env = "prod"
	assert.False(t, ShouldAutoRun(cfg))
}
