package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile             = ".env"
	defaultLogMode             = "development"
	defaultLogBackend          = logBackendZap
	defaultServiceName         = "lending-ledger-demo"
	defaultStatusRetryAttempts = 4

	logBackendZap      = "zap"
	logBackendOTelSlog = "otelslog"
	logBackendOTelLog  = "otellog"

	envLogMode              = "LOG_MODE"
	envLogBackend           = "LOG_BACKEND"
	envObservabilityEnabled = "OBSERVABILITY_ENABLED"
	envServiceName          = "SERVICE_NAME"
	envStatusRetryAttempts  = "STATUS_RETRY_ATTEMPTS"
)

var (
	errInvalidLogMode    = errors.New("log mode must be development or production")
	errInvalidLogBackend = errors.New("log backend must be zap, otelslog or otellog")
	errInvalidAttempts   = errors.New("status retry attempts must be positive")
)

// Config holds the demo configuration.
// Precedence: command line flag, process environment, env file, default.
type Config struct {
	LogMode              string
	LogBackend           string
	ObservabilityEnabled bool
	ServiceName          string
	StatusRetryAttempts  int
}

// loadConfig parses args and resolves unset flags from the environment.
// A missing env file is only an error when -env-file was given explicitly.
func loadConfig(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	flags := flag.NewFlagSet("librarydemo", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		envFile       = flags.String("env-file", defaultEnvFile, "Optional dotenv file with defaults")
		logMode       = flags.String("log-mode", defaultLogMode, "Log mode: development or production")
		logBackend    = flags.String("log-backend", defaultLogBackend, "Contextual log backend: zap, otelslog or otellog")
		observability = flags.Bool("observability-enabled", false, "Enable OpenTelemetry tracing and metrics")
		serviceName   = flags.String("service-name", defaultServiceName, "Service name reported to OpenTelemetry")
		retryAttempts = flags.Int("status-retry-attempts", defaultStatusRetryAttempts, "Maximum attempts of a payment status lookup")
	)

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fileEnv, err := godotenv.Read(*envFile)
	if err != nil {
		if explicit["env-file"] || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading env file %q: %w", *envFile, err)
		}
		fileEnv = map[string]string{}
	}

	env := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileEnv[key]

		return v, ok && v != ""
	}

	cfg := Config{
		LogMode:              *logMode,
		LogBackend:           *logBackend,
		ObservabilityEnabled: *observability,
		ServiceName:          *serviceName,
		StatusRetryAttempts:  *retryAttempts,
	}

	if v, ok := env(envLogMode); ok && !explicit["log-mode"] {
		cfg.LogMode = v
	}

	if v, ok := env(envLogBackend); ok && !explicit["log-backend"] {
		cfg.LogBackend = v
	}

	if v, ok := env(envServiceName); ok && !explicit["service-name"] {
		cfg.ServiceName = v
	}

	if v, ok := env(envObservabilityEnabled); ok && !explicit["observability-enabled"] {
		if cfg.ObservabilityEnabled, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envObservabilityEnabled, err)
		}
	}

	if v, ok := env(envStatusRetryAttempts); ok && !explicit["status-retry-attempts"] {
		if cfg.StatusRetryAttempts, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envStatusRetryAttempts, err)
		}
	}

	if err = cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.LogMode = strings.ToLower(strings.TrimSpace(c.LogMode))
	c.LogBackend = strings.ToLower(strings.TrimSpace(c.LogBackend))

	switch c.LogMode {
	case "development", "dev", "production", "prod":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogMode, c.LogMode)
	}

	switch c.LogBackend {
	case logBackendZap, logBackendOTelSlog, logBackendOTelLog:
	default:
		return fmt.Errorf("%w: %q", errInvalidLogBackend, c.LogBackend)
	}

	if c.StatusRetryAttempts < 1 {
		return fmt.Errorf("%w: %d", errInvalidAttempts, c.StatusRetryAttempts)
	}

	return nil
}
