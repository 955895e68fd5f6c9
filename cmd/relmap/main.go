// Command relmap prints the resolved mapping of the demo entities and runs
// a round trip against a configured database.
//
//	relmap describe
//	relmap -c relmap.yaml demo
//	relmap verify --create
//	RELMAP_DRIVER=postgres RELMAP_DSN=postgres://localhost/app relmap demo
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

// Options are the global command line options.
type Options struct {
	Config   string          `short:"c" long:"config" description:"config file" default:"relmap.yaml"`
	Describe describeCommand `command:"describe" description:"print the mapping of the demo entities as YAML"`
	Demo     demoCommand     `command:"demo" description:"store and load the demo entities"`
	Verify   verifyCommand   `command:"verify" description:"check the demo entities against the database"`
}

var options Options

type describeCommand struct{}

// Execute implements flags.Commander.
func (describeCommand) Execute([]string) error {
	return describe(os.Stdout, entities...)
}

type demoCommand struct {
	Every time.Duration `long:"every" description:"repeat the demo at this interval until interrupted"`
}

// Execute implements flags.Commander.
func (c *demoCommand) Execute([]string) error {
	cfg, v, err := loadConfig(options.Config)
	if err != nil {
		return err
	}
	log, level := newLogger(cfg.Log)
	defer func() { _ = log.Sync() }()
	watchConfig(v, level, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runDemo(ctx, cfg, log, os.Stdout); err != nil || c.Every <= 0 {
		return err
	}
	ticker := time.NewTicker(c.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := runDemo(ctx, cfg, log, os.Stdout); err != nil {
				log.Error("demo failed", zap.Error(err))
			}
		}
	}
}

type verifyCommand struct {
	Create bool `long:"create" description:"create the demo tables first"`
}

// Execute implements flags.Commander.
func (c *verifyCommand) Execute([]string) error {
	cfg, _, err := loadConfig(options.Config)
	if err != nil {
		return err
	}
	log, _ := newLogger(cfg.Log)
	defer func() { _ = log.Sync() }()
	return runVerify(context.Background(), cfg, log, os.Stdout, c.Create)
}

func main() {
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
