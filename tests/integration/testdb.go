// Package integration runs the attribution engine against real databases.
// Postgres tests start a container through testcontainers and apply the SQL
// migrations; sqlite tests use an in-memory database.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/migration"
	"github.com/erp/shopfloor/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const (
	pgImage    = "postgres:16-alpine"
	pgDatabase = "shopfloor_test"
	pgUser     = "postgres"
	pgPassword = "floor-secret"
)

// TestDB is a migrated postgres database in its own container, reached
// through the same constructor the server uses.
type TestDB struct {
	*persistence.Database
	SqlDB     *sql.DB
	Migrator  *migration.Migrator
	Container testcontainers.Container
}

func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, pgImage,
		tcpostgres.WithDatabase(pgDatabase),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	tdb := &TestDB{Container: container}
	t.Cleanup(func() { tdb.close(t) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	tdb.SqlDB, err = sql.Open("postgres", dsn)
	require.NoError(t, err)
	tdb.Migrator, err = migration.New(tdb.SqlDB, migrationsDir(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, tdb.Migrator.Up(), "apply migrations")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	logLevel := "silent"
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logLevel = "info"
	}
	tdb.Database, err = persistence.NewDatabase(&config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Int(),
		User:         pgUser,
		Password:     pgPassword,
		DBName:       pgDatabase,
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		LogLevel:     logLevel,
	}, zap.NewNop())
	require.NoError(t, err, "connect repositories")
	return tdb
}

func (tdb *TestDB) close(t *testing.T) {
	if tdb.Database != nil {
		_ = tdb.Database.Close()
	}
	if tdb.Migrator != nil {
		_ = tdb.Migrator.Close()
	}
	if err := tdb.Container.Terminate(context.Background()); err != nil {
		t.Logf("terminate postgres container: %v", err)
	}
}

// migrationsDir walks up from this file to the repository's migrations directory.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	for dir := filepath.Dir(file); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		p := filepath.Join(dir, migration.DefaultPath)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	t.Fatal("migrations directory not found")
	return ""
}
