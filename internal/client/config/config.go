package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/unitsx"
)

// Config holds runtime settings for the uploader.
//
// MultipartThreshold only predicts the strategy for display; the server
// decides between a single PUT and multipart.
type Config struct {
	ServerURL          string
	AccessToken        string
	SpaceID            string
	ParentID           string
	ChunkSize          unitsx.ByteSize
	MultipartThreshold unitsx.ByteSize
	Concurrency        int
	PartRetries        int
	HashWindow         unitsx.ByteSize
	AbortOnFailure     bool
	RequestTimeout     time.Duration
	LogLevel           string
	Files              []string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SpaceID = protocol.PersonalSpace
	c.ChunkSize = 128 << 20
	c.MultipartThreshold = 128 << 20
	c.Concurrency = 4
	c.PartRetries = 3
	c.HashWindow = 20 << 20
	c.AbortOnFailure = true
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "warn"
}

// Validate reports settings the upload pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	if c.AccessToken == "" {
		errs = append(errs, errors.New("access token is required"))
	}
	if c.ChunkSize < protocol.MinPartSize {
		errs = append(errs, fmt.Errorf("chunk size must be at least %s", unitsx.ByteSize(protocol.MinPartSize)))
	}
	if c.HashWindow <= 0 {
		errs = append(errs, errors.New("hash window must be positive"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.PartRetries < 0 {
		errs = append(errs, errors.New("part retries cannot be negative"))
	}
	if len(c.Files) == 0 {
		errs = append(errs, errors.New("no files to upload"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
