package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/config"
)

func TestHealthChecker_Basic(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	checker := NewHealthChecker(db, nil)
	assert.False(t, checker.IsHealthy())

	result := checker.Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Empty(t, result.LastError)
	assert.NotEmpty(t, result.ResponseTime)
	assert.True(t, checker.IsHealthy())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker_FailureAndRecovery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	checker := NewHealthChecker(db, nil)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	result := checker.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, "connection refused", result.LastError)

	mock.ExpectPing()
	result = checker.Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Empty(t, checker.Result().LastError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenPostgres_RequiresURL(t *testing.T) {
	_, err := OpenPostgres(config.DatabaseConfig{}, nil)
	assert.Error(t, err)
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	_, err := OpenRedis(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}
