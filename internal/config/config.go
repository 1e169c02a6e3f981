package config

import (
	"os"
)

// Auth modes: how bearer tokens are verified.
const (
	AuthModeGoTrue = "gotrue" // remote "get current user" call per request
	AuthModeJWKS   = "jwks"   // local verification against the JWKS endpoint
)

// Storage drivers.
const (
	StorageDriverSupabase = "supabase"
	StorageDriverS3       = "s3"
)

type Config struct {
	Port        string
	Environment string

	// Supabase project (identity + storage + role database)
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseDBURL      string
	SupabaseJWKSURL    string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json

	// AuthMode selects the token verifier: "gotrue" or "jwks"
	AuthMode string

	// StorageDriver selects the object store: "supabase" or "s3"
	StorageDriver string

	// S3 driver settings (used when StorageDriver == "s3")
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3BucketPrefix    string

	// PolicyFile overrides the embedded bucket policy when set
	PolicyFile string

	CORSOrigins string
	TablePrefix string

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL. Left empty when the project URL
	// is unset so the jwks verifier's empty-URL guard can fire.
	jwksURL := ""
	if supabaseURL != "" {
		jwksURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,

		SupabaseURL:        supabaseURL,
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE", ""),
		SupabaseDBURL:      getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:    jwksURL,

		AuthMode:      getEnv("AUTH_MODE", AuthModeGoTrue),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverSupabase),

		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3BucketPrefix:    getEnv("S3_BUCKET_PREFIX", ""),

		PolicyFile: getEnv("LECTERN_POLICY_FILE", ""),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: tablePrefix,

		// Debug defaults to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return ""
	case "test":
		return "test_"
	default:
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
