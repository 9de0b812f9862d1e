package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/logger"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"000002_products.up.sql":    {Data: []byte("CREATE TABLE products (id TEXT)")},
		"000001_customers.up.sql":   {Data: []byte("CREATE TABLE customers (id TEXT)")},
		"000001_customers.down.sql": {Data: []byte("DROP TABLE customers")},
		"README.md":                 {Data: []byte("not a migration")},
	}
}

func TestPendingMigrations_SortedUpFilesOnly(t *testing.T) {
	names, err := pendingMigrations(testMigrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_customers.up.sql", "000002_products.up.sql"}, names)
}

func TestRunMigrations_AppliesNewAndSkipsApplied(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("000001_customers.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("000002_products.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE products").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("000002_products.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = RunMigrations(context.Background(), mock, testMigrations(), logger.Discard())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("syntax error at or near \"TABLE\""))

	err = RunMigrations(context.Background(), mock, testMigrations(), logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.False(t, isConnectionError(errors.New("relation \"products\" does not exist")))
	assert.False(t, isConnectionError(nil))
}

func TestRetryBackoff_WithinJitter(t *testing.T) {
	for attempt, base := range []float64{1, 2, 4} {
		got := retryBackoff(attempt).Seconds()
		assert.GreaterOrEqual(t, got, base*0.75)
		assert.LessOrEqual(t, got, base*1.25)
	}
}
