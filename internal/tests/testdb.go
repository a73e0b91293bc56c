// internal/tests/testdb.go
package tests

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/database"
)

// NewTestDB returns a migrated in-memory database. The pool is pinned to a
// single connection so every query sees the same memory database; code
// under test must use the transaction handle inside transactions.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CreditsConfig mirrors the production costs with a small signup bonus.
func CreditsConfig(signupBonus int) config.CreditsConfig {
	return config.CreditsConfig{
		SignupBonus:      signupBonus,
		ExtractionCost:   10,
		ScriptCost:       20,
		VideoCost:        50,
		RegenerationCost: 0,
	}
}

func RenderConfig() config.RenderConfig {
	return config.RenderConfig{
		Workers:     1,
		MaxAttempts: 3,
		QueueKey:    "test:render",
		QueueSize:   16,
	}
}
