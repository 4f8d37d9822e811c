package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/YusovID/feedback-360-service/internal/config"
)

type migratorConfig struct {
	Env             string          `yaml:"env" env:"ENV" env-default:"local"`
	Postgres        config.Postgres `yaml:"postgres"`
	MigrationsPath  string          `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	MigrationsTable string          `yaml:"migrations_table" env:"MIGRATIONS_TABLE" env-default:"schema_migrations"`
}

func (c migratorConfig) sourceURL() string {
	return c.Postgres.DSN() + "&x-migrations-table=" + c.MigrationsTable
}

// loadConfig reads the service config file when CONFIG_PATH is set and the environment otherwise.
func loadConfig() (*migratorConfig, error) {
	var cfg migratorConfig

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("can't read config %q: %w", path, err)
		}

		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("can't read environment: %w", err)
	}

	return &cfg, nil
}

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

type command struct {
	name string
	arg  int
	run  func(m migrator, log *slog.Logger) error
}

func parseCommand(args []string) (command, error) {
	name := "up"
	if len(args) > 0 {
		name = args[0]
	}

	switch name {
	case "up":
		return command{name: name, run: func(m migrator, log *slog.Logger) error {
			return up(m, log)
		}}, nil
	case "down":
		return command{name: name, run: func(m migrator, log *slog.Logger) error {
			return down(m, log)
		}}, nil
	case "version":
		return command{name: name, run: version}, nil
	case "steps", "force":
		if len(args) < 2 {
			return command{}, fmt.Errorf("%s needs a number", name)
		}

		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: bad number %q: %w", name, args[1], err)
		}

		if name == "steps" {
			if n == 0 {
				return command{}, errors.New("steps: must be non-zero")
			}

			return command{name: name, arg: n, run: func(m migrator, log *slog.Logger) error {
				return steps(m, log, n)
			}}, nil
		}

		if n < 0 {
			return command{}, errors.New("force: version must not be negative")
		}

		return command{name: name, arg: n, run: func(m migrator, log *slog.Logger) error {
			return force(m, log, n)
		}}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q (want up, down, steps N, force V or version)", name)
	}
}

func up(m migrator, log *slog.Logger) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no new migrations to apply")
			return nil
		}

		return fmt.Errorf("can't apply migrations: %w", err)
	}

	log.Info("migrations applied")

	return nil
}

func down(m migrator, log *slog.Logger) error {
	if err := m.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return errors.New("no migrations to roll back")
		}

		return fmt.Errorf("can't roll back migrations: %w", err)
	}

	log.Info("migrations rolled back")

	return nil
}

func steps(m migrator, log *slog.Logger, n int) error {
	if err := m.Steps(n); err != nil {
		return fmt.Errorf("can't move %d step(s): %w", n, err)
	}

	log.Info("migration steps applied", slog.Int("steps", n))

	return nil
}

// force marks the schema as clean at the given version without running anything.
func force(m migrator, log *slog.Logger, v int) error {
	if err := m.Force(v); err != nil {
		return fmt.Errorf("can't force version %d: %w", v, err)
	}

	log.Warn("schema version forced", slog.Int("version", v))

	return nil
}

func version(m migrator, log *slog.Logger) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("no migrations applied yet")
		return nil
	}

	if err != nil {
		return fmt.Errorf("can't read migration version: %w", err)
	}

	log.Info("schema version", slog.Uint64("version", uint64(v)), slog.Bool("dirty", dirty))

	return nil
}
