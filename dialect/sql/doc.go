// Package sql implements dialect.Driver over database/sql and provides the
// transactional executor used by the repository.
//
// Every statement handed to a TxExecutor runs in a transaction of its own.
// Query results are read into a RowSet before the commit:
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	exec := sql.NewTxExecutor(drv, sql.WithExecutorLogger(logger))
//	rows, err := exec.Query(ctx, "SELECT * FROM orders")
//
// StatsDriver and DebugDriver wrap a Driver to count and log statements.
// WithVar attaches session variables (e.g. a Postgres search_path) that are
// SET before each statement and reset afterwards.
//
// Errors from the lib/pq, go-sql-driver/mysql and modernc sqlite drivers
// are classified by ClassifyConstraint; the executor wraps constraint
// violations in relmap.ConstraintError.
package sql
