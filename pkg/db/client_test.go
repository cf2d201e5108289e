package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/logger"
)

type widget struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func openWidgets(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:widgets_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn
}

func countWidgets(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTxCommitAndRollback(t *testing.T) {
	conn := openWidgets(t)
	client := FromConn(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Code: "kept"}).Error
	}))
	assert.Equal(t, int64(1), countWidgets(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Code: "dropped"}).Error)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, int64(1), countWidgets(t, conn))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn := openWidgets(t)
	client := FromConn(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Code: "panicked"}).Error)
			panic("boom")
		})
	})
	assert.Zero(t, countWidgets(t, conn))
}

func TestWithTxRetriesContention(t *testing.T) {
	client := FromConn(openWidgets(t))
	client.txAttempts = 3

	calls := 0
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: codeSerializationFailure}
		}
		return tx.Create(&widget{Code: "third-time"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return &pq.Error{Code: codeDeadlockDetected}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithTxDoesNotRetryOrdinaryErrors(t *testing.T) {
	client := FromConn(openWidgets(t))
	calls := 0
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return errors.New("validation")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewSQLiteAndPing(t *testing.T) {
	cfg := config.DBConfig{DSN: "file:dbnew_" + uuid.NewString() + "?mode=memory&cache=shared", MaxOpenConns: 20}
	client, err := New(context.Background(), cfg, true, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, true, nil)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openWidgets(t)
	require.NoError(t, conn.Create(&widget{Code: "dup"}).Error)
	err := conn.Create(&widget{Code: "dup"}).Error

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "widgets.code"))
	assert.False(t, IsUniqueViolation(err, "products.sku"))
	assert.False(t, IsUniqueViolation(errors.New("other"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))

	pgErr := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "idx_products_sku"}
	assert.True(t, IsUniqueViolation(pgErr, "idx_products_sku"))
	assert.False(t, IsUniqueViolation(pgErr, "idx_orders_number"))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: codeUniqueViolation}, ""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: codeSerializationFailure}))
	assert.True(t, IsRetryable(&pq.Error{Code: codeDeadlockDetected}))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, IsRetryable(nil))
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	ql.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "query failed")

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Empty(t, buf.String())
}
