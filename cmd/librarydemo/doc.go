// Package main runs the lending ledger and the transaction processor end to end against in-memory backends.
//
// It wires one catalog, one notification bus, one user registry and one ledger, imports books from
// JSON, CSV and XML, lends them within the role quotas, lets two users race for the last copy and takes
// payments through an in-memory gateway with injected faults. Outcomes are printed to stdout.
//
// Configuration comes from flags, the environment and an optional dotenv file, in that order:
//
//	-env-file               dotenv file (default .env)
//	-log-mode               LOG_MODE: development or production
//	-log-backend            LOG_BACKEND: zap, otelslog or otellog
//	-observability-enabled  OBSERVABILITY_ENABLED: export spans to stderr and collect metrics
//	-service-name           SERVICE_NAME
//	-status-retry-attempts  STATUS_RETRY_ATTEMPTS: attempts of a payment status lookup
package main
