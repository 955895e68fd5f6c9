package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap/builder"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/repo"
)

var (
	redID  = uuid.MustParse("0b6f5a2e-3a3c-4c8e-9d0e-6f1d2c3b4a51")
	blueID = uuid.MustParse("9a1e7c44-51b2-4b7d-8f6a-2c3d4e5f6a72")
)

// openDriver opens the configured database and wraps it with the
// statistics and debug drivers when enabled.
func openDriver(cfg *Config, log *zap.Logger) (dialect.Driver, *sql.StatsDriver, error) {
	drv, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Driver == dialect.SQLite {
		// Every connection to :memory: is a database of its own.
		drv.DB().SetMaxOpenConns(1)
	}
	var (
		d     dialect.Driver = drv
		stats *sql.StatsDriver
	)
	if cfg.SlowQuery > 0 {
		stats = sql.NewStatsDriver(drv, sql.WithSlowThreshold(cfg.SlowQuery), sql.WithSlowQueryLog(log))
		d = stats
	}
	if cfg.Debug {
		d = sql.NewDebugDriver(d, log)
	}
	return d, stats, nil
}

type orderReport struct {
	ID       int64    `yaml:"id"`
	Total    *float64 `yaml:"total"`
	Customer string   `yaml:"customer"`
	Tags     []string `yaml:"tags"`
}

type customerReport struct {
	ID     int64         `yaml:"id"`
	Name   string        `yaml:"name"`
	Orders []orderReport `yaml:"orders"`
}

// runDemo creates the demo tables, stores a small graph and writes it back
// as YAML after loading it through the repository.
func runDemo(ctx context.Context, cfg *Config, log *zap.Logger, w io.Writer) error {
	drv, stats, err := openDriver(cfg, log)
	if err != nil {
		return err
	}
	defer drv.Close()
	exec := sql.NewTxExecutor(drv, sql.WithExecutorLogger(log))
	ctx = cfg.sessionContext(ctx)
	for _, stmt := range ddl {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	opts := []repo.Option{repo.WithLogger(log)}
	if cfg.Eager {
		opts = append(opts, repo.WithEagerRelations())
	}
	if cfg.Strict {
		opts = append(opts, repo.WithStrictErrors())
	}
	client := repo.NewClient(exec, opts...)
	customers, orders, tags := repo.For[Customer](client), repo.For[Order](client), repo.For[Tag](client)

	ada, err := customers.Save(ctx, &Customer{ID: 1, Name: "Ada"})
	if err != nil {
		return err
	}
	for _, t := range []*Tag{{ID: redID, Name: "red"}, {ID: blueID, Name: "blue"}} {
		if _, err := tags.Save(ctx, t); err != nil {
			return err
		}
	}
	for _, o := range []struct {
		id    int64
		total float64
		tags  []uuid.UUID
	}{
		{1, 12.5, []uuid.UUID{redID}},
		{2, 30, []uuid.UUID{redID, blueID}},
	} {
		if _, err := orders.Save(ctx, &Order{ID: o.id, Total: &o.total, Customer: ada}); err != nil {
			return err
		}
		if err := link(ctx, exec, o.id, o.tags); err != nil {
			return err
		}
	}

	c, err := customers.FindByID(ctx, ada.ID)
	if err != nil {
		return err
	}
	if err := customers.Populate(ctx, c); err != nil {
		return err
	}
	report := customerReport{ID: c.ID, Name: c.Name, Orders: []orderReport{}}
	for _, o := range c.Orders {
		if err := orders.Populate(ctx, o); err != nil {
			return err
		}
		r := orderReport{ID: o.ID, Total: o.Total, Customer: o.Customer.Name}
		for _, t := range o.Tags {
			r.Tags = append(r.Tags, t.Name)
		}
		report.Orders = append(report.Orders, r)
	}
	if stats != nil {
		log.Info("query statistics", zap.Object("stats", stats.QueryStats().Stats()))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// link replaces the join rows of an order. Join rows have no entity of
// their own, so they are written as plain statements.
func link(ctx context.Context, exec *sql.TxExecutor, order int64, tags []uuid.UUID) error {
	if _, err := exec.Exec(ctx, fmt.Sprintf("DELETE FROM order_tags WHERE orders_id = %d", order)); err != nil {
		return err
	}
	for _, id := range tags {
		v, err := builder.StringValueForSQL(id)
		if err != nil {
			return err
		}
		if _, err := exec.Exec(ctx, fmt.Sprintf("INSERT INTO order_tags(orders_id, tags_tag_id) VALUES (%d, %s)", order, v)); err != nil {
			return err
		}
	}
	return nil
}
