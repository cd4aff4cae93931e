// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	SNAG_HOST="0.0.0.0"
//	SNAG_PORT="8080"
//	SNAG_HEALTH_PORT="9090"
//	SNAG_READ_TIMEOUT="15s"
//	SNAG_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	SNAG_POSTGRES_URL="postgres://localhost/snag"
//	SNAG_POSTGRES_MAX_CONNS="20"
//	SNAG_REDIS_URL="redis://localhost:6379/0"
//	SNAG_BLOB_BACKEND="filesystem"  # filesystem, s3
//	SNAG_BLOB_ROOT="/var/lib/snag/blobs"
//	SNAG_S3_BUCKET="snag-attachments"
//	SNAG_S3_REGION="us-east-1"
//
// Auth settings:
//
//	SNAG_SESSION_TTL="24h"
//	SNAG_POLICY_FILE=""  # optional workflow/permission override
//
// Observability settings:
//
//	SNAG_LOG_LEVEL="info"  # debug, info, warn, error
//	SNAG_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Blob backend: %s\n", cfg.Storage.BlobBackend)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
