package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatsDriver(t *testing.T) {
	drv, mock := newMock(t)
	core, logs := observer.New(zap.WarnLevel)
	stats := NewStatsDriver(drv, WithSlowThreshold(-1), WithSlowQueryLog(zap.New(core)))
	exec := NewTxExecutor(stats)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM orders").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders WHERE id = 1").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	_, err := exec.Query(ctx, "SELECT * FROM orders")
	require.NoError(t, err)
	_, err = exec.Exec(ctx, "DELETE FROM orders WHERE id = 1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	snap := stats.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(2), snap.SlowQueries)
	assert.Equal(t, 2, logs.FilterMessage("slow query detected").Len())
	assert.Contains(t, snap.String(), "queries=1 execs=1")

	stats.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, stats.SlowThreshold())
	stats.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, stats.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
}

func TestDebugDriver(t *testing.T) {
	drv, mock := newMock(t)
	core, logs := observer.New(zap.DebugLevel)
	exec := NewTxExecutor(NewDebugDriver(drv, zap.New(core)))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders WHERE id = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	_, err := exec.Exec(context.Background(), "DELETE FROM orders WHERE id = 1")
	require.NoError(t, err)

	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"begin transaction", "tx exec", "commit transaction"}, msgs)
}
