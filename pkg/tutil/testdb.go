package tutil

import (
	"testing"
	"time"

	"github.com/datican/datarepo/pkg/drdb"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type NullLogger struct{}

func (l *NullLogger) Printf(_ string, _ ...interface{}) {
}

// NewTestDB opens an in-memory sqlite database and runs the portal
// migrations against it. Each test gets a fresh schema.
func NewTestDB(t *testing.T) *gorm.DB {
	gormLogger := logger.New(&NullLogger{},
		logger.Config{
			SlowThreshold:             time.Second * 5,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		})

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormLogger})
	require.NoErrorf(t, err, "gorm.Open failed: %s", err)

	sqlitedb, err := db.DB()
	require.NoError(t, err)

	// Set the sqlite db to 1 connection. This gets around table lock issues from
	// multiple threads.
	sqlitedb.SetMaxOpenConns(1)

	err = drdb.RunMigrations(db)
	require.NoErrorf(t, err, "Migration failed with: %s", err)

	return db
}
