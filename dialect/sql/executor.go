package sql

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

// TxExecutor runs every statement in a transaction of its own: begin, run,
// read the rows completely, commit. On failure the transaction is rolled
// back and the error returned. Because rows are read before the commit, the
// connection is released before the caller looks at the result, so nested
// lookups cannot starve a pool of one connection.
type TxExecutor struct {
	drv dialect.Driver
	log *zap.Logger
}

// ExecutorOption configures a TxExecutor.
type ExecutorOption func(*TxExecutor)

// WithExecutorLogger sets the logger used to report failed statements.
func WithExecutorLogger(log *zap.Logger) ExecutorOption {
	return func(e *TxExecutor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewTxExecutor returns a TxExecutor over drv.
func NewTxExecutor(drv dialect.Driver, opts ...ExecutorOption) *TxExecutor {
	e := &TxExecutor{drv: drv, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Driver returns the underlying driver.
func (e *TxExecutor) Driver() dialect.Driver {
	return e.drv
}

// Query runs a statement that returns rows.
func (e *TxExecutor) Query(ctx context.Context, query string) (*RowSet, error) {
	var set *RowSet
	err := e.inTx(ctx, query, func(tx dialect.Tx) error {
		rows := &Rows{}
		if err := tx.Query(ctx, query, []any{}, rows); err != nil {
			return err
		}
		var err error
		set, err = Collect(rows)
		return errors.Join(err, rows.Close())
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Exec runs a statement that returns no rows.
func (e *TxExecutor) Exec(ctx context.Context, query string) (Result, error) {
	var res Result
	err := e.inTx(ctx, query, func(tx dialect.Tx) error {
		return tx.Exec(ctx, query, []any{}, &res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *TxExecutor) inTx(ctx context.Context, query string, fn func(dialect.Tx) error) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("dialect/sql: empty statement")
	}
	tx, err := e.drv.Tx(ctx)
	if err != nil {
		e.log.Error("begin transaction", zap.String("sql", query), zap.Error(err))
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = errors.Join(err, &relmap.RollbackError{Err: rerr})
		}
		if kind := ClassifyConstraint(err); kind != NoConstraint {
			err = relmap.NewConstraintError(kind.String()+" constraint failed", err)
		}
		e.log.Warn("statement failed", zap.String("sql", query), zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		e.log.Error("commit transaction", zap.String("sql", query), zap.Error(err))
		return err
	}
	return nil
}
