package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiyaportal/accountd/internal/app"
	"github.com/shaiyaportal/accountd/internal/config"

	log "github.com/sirupsen/logrus"
)

// main runs the account gateway and exits on unrecoverable errors.
func main() {
	if errRun := run(os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server.
func run(args []string) error {
	fs := flag.NewFlagSet("accountd", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	migrateOnly := fs.Bool("migrate", false, "apply schema migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	path := *cfgPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}

	cfg, errLoad := config.Load(path)
	if errLoad != nil {
		return errLoad
	}

	if *migrateOnly {
		return app.Migrate(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunServer(ctx, cfg)
}
