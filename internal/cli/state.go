package cli

import (
	"os"
	"strings"

	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/state"
	"github.com/davidthor/auractl/pkg/state/backend"
)

// Environment variable names for run record backend configuration.
const (
	// EnvRecordsBackend sets the record backend type (local, s3, gcs, azurerm, badger).
	EnvRecordsBackend = "AURACTL_RECORDS_BACKEND"

	// EnvRecordsPrefix is the prefix for backend-specific config environment variables.
	// For example, AURACTL_RECORDS_PATH sets the "path" config for the local backend,
	// AURACTL_RECORDS_BUCKET sets the "bucket" config for S3/GCS backends.
	EnvRecordsPrefix = "AURACTL_RECORDS_"
)

// recordsBackendConfig computes the effective record backend configuration.
//
// Configuration precedence (highest to lowest):
//  1. CLI flags (--records-backend, --records-config)
//  2. Environment variables (AURACTL_RECORDS_BACKEND, AURACTL_RECORDS_*)
//  3. neo4j.backup.records in the config file
//  4. Hardcoded defaults (local backend with ~/.auractl/runs)
func recordsBackendConfig(fromFile config.RecordsConfig, backendType string, backendConfig []string) backend.Config {
	effectiveBackend := "local"
	effectiveConfig := make(map[string]string)

	if fromFile.Backend != "" {
		effectiveBackend = fromFile.Backend
	}
	for k, v := range fromFile.Config {
		effectiveConfig[k] = v
	}

	if envBackend := os.Getenv(EnvRecordsBackend); envBackend != "" {
		// Settings for a different backend type don't carry over.
		if envBackend != effectiveBackend {
			effectiveConfig = make(map[string]string)
		}
		effectiveBackend = envBackend
	}

	// Backend-specific env vars (AURACTL_RECORDS_PATH, AURACTL_RECORDS_BUCKET, etc.)
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvRecordsPrefix) && !strings.HasPrefix(env, EnvRecordsBackend+"=") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				key := strings.ToLower(strings.TrimPrefix(parts[0], EnvRecordsPrefix))
				effectiveConfig[key] = parts[1]
			}
		}
	}

	if backendType != "" {
		if backendType != effectiveBackend {
			effectiveConfig = make(map[string]string)
		}
		effectiveBackend = backendType
	}

	for _, c := range backendConfig {
		parts := strings.SplitN(c, "=", 2)
		if len(parts) == 2 {
			effectiveConfig[strings.TrimSpace(parts[0])] = parts[1]
		}
	}

	return backend.Config{
		Type:   effectiveBackend,
		Config: effectiveConfig,
	}
}

// createRecordManager opens the run record store.
func createRecordManager(fromFile config.RecordsConfig, backendType string, backendConfig []string) (state.Manager, error) {
	return state.NewManagerFromConfig(recordsBackendConfig(fromFile, backendType, backendConfig))
}
