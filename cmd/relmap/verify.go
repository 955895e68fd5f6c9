package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/repo"
)

// runVerify checks the demo entities against the configured database. With
// create set, the demo tables are created first.
func runVerify(ctx context.Context, cfg *Config, log *zap.Logger, w io.Writer, create bool) error {
	drv, _, err := openDriver(cfg, log)
	if err != nil {
		return err
	}
	defer drv.Close()
	exec := sql.NewTxExecutor(drv, sql.WithExecutorLogger(log))
	ctx = cfg.sessionContext(ctx)
	if create {
		for _, stmt := range ddl {
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
		}
	}
	result, err := repo.NewClient(exec, repo.WithLogger(log)).Validate(ctx, entities)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, result)
	if result.HasErrors() {
		return errors.New("mapping does not match the database")
	}
	return nil
}
