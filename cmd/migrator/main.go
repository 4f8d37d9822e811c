package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/YusovID/feedback-360-service/pkg/logger/slogpretty"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := slogpretty.SetupLogger(cfg.Env).With(slog.String("op", "cmd.migrator.run"))

	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.sourceURL())
	if err != nil {
		return fmt.Errorf("can't create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Error("migrator close failed", sl.Err(fmt.Errorf("source: %v, database: %v", srcErr, dbErr)))
		}
	}()

	log.Info("running migrations", slog.String("command", cmd.name), slog.String("path", cfg.MigrationsPath))

	return cmd.run(m, log)
}
