package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
)

type testModel struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), gormConfig())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := FromGorm(db)

	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Code: "committed"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Code: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "rollback should leave one record")
}

func TestPing(t *testing.T) {
	client := FromGorm(newTestDB(t))
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewSQLiteDriver(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    "file:new_sqlite_driver?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "x"}, nil)
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Code: "dup"}).Error)
	err := db.Create(&testModel{Code: "dup"}).Error
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "code"))
	assert.False(t, IsUniqueViolation(err, "qr_code_idx"))
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "inventory_units_qr_code_key"}
	wrapped := fmt.Errorf("insert: %w", pgErr)
	assert.True(t, IsUniqueViolation(wrapped, "inventory_units_qr_code_key"))
	assert.True(t, IsUniqueViolation(wrapped, ""))
}

func TestUniqueConstraintMatchesBothDrivers(t *testing.T) {
	number := UniqueConstraint{Name: "transfer_packages_number_key", Target: "transfer_packages.transfer_number"}

	sqliteErr := errors.New("UNIQUE constraint failed: transfer_packages.transfer_number")
	assert.True(t, number.Matches(sqliteErr))
	assert.False(t, number.Matches(errors.New("UNIQUE constraint failed: transfer_packages.qr_code")))

	pgErr := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505", ConstraintName: "transfer_packages_number_key"})
	assert.True(t, number.Matches(pgErr))
	other := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505", ConstraintName: "transfer_packages_qr_code_key"})
	assert.False(t, number.Matches(other))
	fk := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23503", ConstraintName: "transfer_packages_number_key"})
	assert.False(t, number.Matches(fk))
	assert.False(t, number.Matches(nil))
}
