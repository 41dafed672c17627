package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "demo.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_LoadConfig_Defaults(t *testing.T) {
	// act
	cfg, err := loadConfig(nil, noEnv)

	// assert
	require.NoError(t, err)
	assert.Equal(t, Config{
		LogMode:              defaultLogMode,
		LogBackend:           logBackendZap,
		ObservabilityEnabled: false,
		ServiceName:          defaultServiceName,
		StatusRetryAttempts:  defaultStatusRetryAttempts,
	}, cfg)
}

func Test_LoadConfig_ExplicitMissingEnvFile_IsAnError(t *testing.T) {
	// arrange
	args := []string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}

	// act
	_, err := loadConfig(args, noEnv)

	// assert
	assert.Error(t, err)
}

func Test_LoadConfig_ReadsEnvFile(t *testing.T) {
	// arrange
	path := writeEnvFile(t, "LOG_MODE=production\nOBSERVABILITY_ENABLED=true\nSERVICE_NAME=branch-7\nSTATUS_RETRY_ATTEMPTS=2\n")

	// act
	cfg, err := loadConfig([]string{"-env-file", path}, noEnv)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.LogMode)
	assert.True(t, cfg.ObservabilityEnabled)
	assert.Equal(t, "branch-7", cfg.ServiceName)
	assert.Equal(t, 2, cfg.StatusRetryAttempts)
}

func Test_LoadConfig_Precedence(t *testing.T) {
	// arrange
	path := writeEnvFile(t, "SERVICE_NAME=from-file\nSTATUS_RETRY_ATTEMPTS=2\nLOG_BACKEND=otellog\n")
	env := envOf(map[string]string{"SERVICE_NAME": "from-env", "STATUS_RETRY_ATTEMPTS": "5"})
	args := []string{"-env-file", path, "-status-retry-attempts", "7"}

	// act
	cfg, err := loadConfig(args, env)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ServiceName)
	assert.Equal(t, 7, cfg.StatusRetryAttempts)
	assert.Equal(t, logBackendOTelLog, cfg.LogBackend)
}

func Test_LoadConfig_InvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		env  map[string]string
		want error
	}{
		{name: "log mode", args: []string{"-log-mode", "verbose"}, want: errInvalidLogMode},
		{name: "log backend", env: map[string]string{"LOG_BACKEND": "syslog"}, want: errInvalidLogBackend},
		{name: "retry attempts", args: []string{"-status-retry-attempts", "0"}, want: errInvalidAttempts},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			args := append([]string{"-env-file", writeEnvFile(t, "")}, tc.args...)

			// act
			_, err := loadConfig(args, envOf(tc.env))

			// assert
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func Test_LoadConfig_UnparsableEnvironment(t *testing.T) {
	// arrange
	args := []string{"-env-file", writeEnvFile(t, "")}

	// act
	_, boolErr := loadConfig(args, envOf(map[string]string{"OBSERVABILITY_ENABLED": "maybe"}))
	_, intErr := loadConfig(args, envOf(map[string]string{"STATUS_RETRY_ATTEMPTS": "many"}))

	// assert
	assert.ErrorContains(t, boolErr, "OBSERVABILITY_ENABLED")
	assert.ErrorContains(t, intErr, "STATUS_RETRY_ATTEMPTS")
}
