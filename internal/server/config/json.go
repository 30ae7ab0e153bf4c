package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/casdrive/internal/flagx"
	"github.com/dmitrijs2005/casdrive/internal/unitsx"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept "1h" or nanoseconds, sizes accept "128MiB" or bytes. Absent fields
// leave the current value alone.
type JsonConfig struct {
	EndpointAddrHTTP   string          `json:"endpoint_addr_http"`
	DatabaseDSN        *string         `json:"database_dsn"`
	SecretKey          string          `json:"secret_key"`
	TokenValidity      unitsx.Duration `json:"token_validity"`
	LogLevel           string          `json:"log_level"`
	S3AccessKey        string          `json:"s3_access_key"`
	S3SecretKey        string          `json:"s3_secret_key"`
	S3Bucket           string          `json:"s3_bucket"`
	S3Region           string          `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
	S3UsePathStyle     *bool           `json:"s3_use_path_style"`
	PresignExpiry      unitsx.Duration `json:"presign_expiry"`
	MultipartThreshold unitsx.ByteSize `json:"multipart_threshold"`
	MaxUploadSize      unitsx.ByteSize `json:"max_upload_size"`
}

// parseJson overlays the file named by -c / -config onto config. Without
// either flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidity.Duration > 0 {
		config.TokenValidity = c.TokenValidity.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	if c.S3BaseEndpoint != nil {
		config.S3BaseEndpoint = *c.S3BaseEndpoint
	}
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	if c.PresignExpiry.Duration > 0 {
		config.PresignExpiry = c.PresignExpiry.Duration
	}
	if c.MultipartThreshold > 0 {
		config.MultipartThreshold = c.MultipartThreshold
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
