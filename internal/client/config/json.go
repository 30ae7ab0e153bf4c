package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/casdrive/internal/flagx"
	"github.com/dmitrijs2005/casdrive/internal/unitsx"
)

// JsonConfig is the on-disk shape of the uploader configuration. Absent
// fields leave the current value alone.
type JsonConfig struct {
	ServerURL          string          `json:"server_url"`
	AccessToken        string          `json:"access_token"`
	SpaceID            string          `json:"space_id"`
	ParentID           string          `json:"parent_id"`
	ChunkSize          unitsx.ByteSize `json:"chunk_size"`
	MultipartThreshold unitsx.ByteSize `json:"multipart_threshold"`
	Concurrency        int             `json:"concurrency"`
	PartRetries        *int            `json:"part_retries"`
	HashWindow         unitsx.ByteSize `json:"hash_window"`
	AbortOnFailure     *bool           `json:"abort_on_failure"`
	RequestTimeout     unitsx.Duration `json:"request_timeout"`
	LogLevel           string          `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c / -config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	overlay(&cfg.ServerURL, jc.ServerURL)
	overlay(&cfg.AccessToken, jc.AccessToken)
	overlay(&cfg.SpaceID, jc.SpaceID)
	overlay(&cfg.ParentID, jc.ParentID)
	overlay(&cfg.LogLevel, jc.LogLevel)
	if jc.ChunkSize > 0 {
		cfg.ChunkSize = jc.ChunkSize
	}
	if jc.MultipartThreshold > 0 {
		cfg.MultipartThreshold = jc.MultipartThreshold
	}
	if jc.Concurrency > 0 {
		cfg.Concurrency = jc.Concurrency
	}
	if jc.PartRetries != nil {
		cfg.PartRetries = *jc.PartRetries
	}
	if jc.HashWindow > 0 {
		cfg.HashWindow = jc.HashWindow
	}
	if jc.AbortOnFailure != nil {
		cfg.AbortOnFailure = *jc.AbortOnFailure
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
