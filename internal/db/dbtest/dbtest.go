// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/voting"
)

// New opens a private in-memory database. A single connection is used so
// every statement sees the same data; code under test must run queries
// inside a transaction on the transaction handle.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// NewSite opens a database with every site table migrated and the votable
// models registered on a fresh engine.
func NewSite(t testing.TB, clock clockwork.Clock, opts ...voting.EngineOption) (*gorm.DB, *voting.Engine) {
	t.Helper()
	gdb := New(t)
	engine, err := voting.NewEngine(gdb, append([]voting.EngineOption{voting.WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("voting engine: %v", err)
	}
	if err := models.RegisterVoting(engine); err != nil {
		t.Fatalf("register votables: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := engine.Migrate(); err != nil {
		t.Fatalf("migrate voting: %v", err)
	}
	return gdb, engine
}

// CreateUser stores an active user with the given username.
func CreateUser(t testing.TB, gdb *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
