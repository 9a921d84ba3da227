// Package dbtest opens throwaway SQLite databases carrying the engine schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

// Open returns an isolated in-memory database migrated with every model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

// SeedLocation inserts a location of the given type.
func SeedLocation(t testing.TB, db *gorm.DB, name string, locType enums.LocationType) models.Location {
	t.Helper()
	loc := models.Location{Name: name, Type: locType}
	require.NoError(t, db.Create(&loc).Error)
	return loc
}

// SeedProduct inserts a gram-based product.
func SeedProduct(t testing.TB, db *gorm.DB, name string) models.Product {
	t.Helper()
	product := models.Product{Name: name, SKU: strings.ToUpper(strings.ReplaceAll(name, " ", "-")), BaseUnit: "g"}
	require.NoError(t, db.Create(&product).Error)
	return product
}
