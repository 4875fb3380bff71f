/*
Package configs loads the server settings.

Values come from the process environment, optionally seeded from a .env file. Only the
listen port is part of the public contract; everything else has a working default for a
single local process.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// StorageLocal keeps uploads in a directory served by this process.
	StorageLocal = "local"

	// StorageS3 keeps uploads in an S3-compatible bucket with public read access.
	StorageS3 = "s3"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Static client and uploads
	StaticDir       string
	UploadDir       string
	UploadURLPrefix string
	StorageBackend  string

	// S3 Storage Settings, used when StorageBackend is "s3"
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads envFile when it exists (variables already set in the
// environment win) and then parses the environment into an AppConfig.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &AppConfig{
		Environment:     getEnv("ENVIRONMENT", "production"),
		StaticDir:       getEnv("STATIC_DIR", "public"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		UploadURLPrefix: "/" + strings.Trim(getEnv("UPLOAD_URL_PREFIX", "/uploads"), "/"),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
	}

	port, err := ParsePort(getEnv("PORT", "3000"))
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	if cfg.UploadURLPrefix == "/" {
		return nil, fmt.Errorf("UPLOAD_URL_PREFIX must not be the root path")
	}

	switch cfg.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if err := cfg.loadS3(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", cfg.StorageBackend, StorageLocal, StorageS3)
	}

	return cfg, nil
}

// ParsePort validates a listen port.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid PORT %q: %w", s, err)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port number %d is outside the valid range (1-65535)", port)
	}

	return port, nil
}

func (c *AppConfig) loadS3() error {
	required := []struct {
		env string
		dst *string
	}{
		{"S3_BUCKET_NAME", &c.S3BucketName},
		{"S3_ENDPOINT", &c.S3Endpoint},
		{"S3_ACCESS_KEY_ID", &c.S3AccessKeyID},
		{"S3_SECRET_ACCESS_KEY", &c.S3SecretAccessKey},
		{"S3_PUBLIC_URL", &c.S3PublicURL},
	}

	for _, field := range required {
		*field.dst = os.Getenv(field.env)
		if *field.dst == "" {
			return fmt.Errorf("%s environment variable is required when STORAGE_BACKEND=s3", field.env)
		}
	}

	c.S3PublicURL = strings.TrimRight(c.S3PublicURL, "/")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
