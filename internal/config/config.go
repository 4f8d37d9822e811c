package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string   `yaml:"env" env:"APP_ENV" env-default:"local"`
	Postgres Postgres `yaml:"postgres"`
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Notify   Notify   `yaml:"notify"`
	Cache    Cache    `yaml:"cache"`
	Workflow Workflow `yaml:"workflow"`
}

type Postgres struct {
	Username        string        `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
	SSLMode         string        `yaml:"ssl_mode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"1m"`
}

// DSN returns the lib/pq connection URL.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type Server struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type Auth struct {
	JWTSecret          string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	Issuer             string        `yaml:"issuer" env-default:"feedback-360"`
	SessionTTL         time.Duration `yaml:"session_ttl" env-default:"12h"`
	ExternalSessionTTL time.Duration `yaml:"external_session_ttl" env-default:"2h"`
}

type Notify struct {
	// Driver selects the delivery backend: log, smtp or nats.
	Driver           string        `yaml:"driver" env:"NOTIFY_DRIVER" env-default:"log"`
	From             string        `yaml:"from" env:"NOTIFY_FROM" env-default:"feedback@localhost"`
	DispatchInterval time.Duration `yaml:"dispatch_interval" env-default:"30s"`
	BatchSize        int           `yaml:"batch_size" env-default:"50"`
	MaxAttempts      int           `yaml:"max_attempts" env-default:"5"`
	SMTP             SMTP          `yaml:"smtp"`
	NATS             NATS          `yaml:"nats"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	SubjectPrefix string `yaml:"subject_prefix" env-default:"notifications.feedback"`
}

type Cache struct {
	ActiveCycleTTL time.Duration `yaml:"active_cycle_ttl" env-default:"5m"`
	VerticalsTTL   time.Duration `yaml:"verticals_ttl" env-default:"30m"`
}

type Workflow struct {
	// Location is the IANA zone used to turn "now" into a calendar date for deadline checks.
	Location string `yaml:"location" env:"WORKFLOW_LOCATION" env-default:"UTC"`
	// EligibilityCutoff, when set (YYYY-MM-DD), bars employees who joined after it from requesting feedback.
	EligibilityCutoff string `yaml:"eligibility_cutoff" env:"WORKFLOW_ELIGIBILITY_CUTOFF"`
	// ExternalLinkBase is the page external reviewers open; token and email are appended.
	ExternalLinkBase string `yaml:"external_link_base" env-default:"http://localhost:8080/external"`
	// SweepInterval, when set, also runs the nomination-deadline sweep on a timer. Zero (the default)
	// leaves it to the HR sweep endpoint.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH,
// then environment overrides.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("cannot load .env: %w", err)
		}
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if _, err := cfg.Workflow.LoadLocation(); err != nil {
		return nil, err
	}

	if _, err := cfg.Workflow.Cutoff(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// LoadLocation resolves Location.
func (w Workflow) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow.location %q: %w", w.Location, err)
	}

	return loc, nil
}

// Cutoff parses EligibilityCutoff. A zero time means no cutoff.
func (w Workflow) Cutoff() (time.Time, error) {
	if w.EligibilityCutoff == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.DateOnly, w.EligibilityCutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid workflow.eligibility_cutoff %q: %w", w.EligibilityCutoff, err)
	}

	return t, nil
}
