package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/casdrive/internal/flagx"
)

var (
	valueFlags = []string{"-a", "-t", "-s", "-p", "-k", "-m", "-n", "-r", "-w", "-T", "-l"}
	boolFlags  = []string{"-A"}
)

// parseFlags populates Config from command-line flags and collects the
// remaining arguments as files.
//
// Supported flags (short forms):
//
//	-a string     server base URL
//	-t string     access token
//	-s string     space id, "personal" for the caller's own space
//	-p string     parent folder id
//	-k size       multipart chunk size (e.g., "64MiB")
//	-m size       expected multipart threshold
//	-n int        parallel part transfers per file
//	-r int        retries per request
//	-w size       hash read window
//	-T duration   timeout of a single API request
//	-l string     log level
//	-A bool       abort multipart uploads that fail (use -A=false to keep them)
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("uploader", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.SpaceID, "s", cfg.SpaceID, "space id")
	fs.StringVar(&cfg.ParentID, "p", cfg.ParentID, "parent folder id")
	fs.Var(&cfg.ChunkSize, "k", "chunk size")
	fs.Var(&cfg.MultipartThreshold, "m", "multipart threshold")
	fs.IntVar(&cfg.Concurrency, "n", cfg.Concurrency, "parallel part transfers")
	fs.IntVar(&cfg.PartRetries, "r", cfg.PartRetries, "retries per request")
	fs.Var(&cfg.HashWindow, "w", "hash read window")
	fs.DurationVar(&cfg.RequestTimeout, "T", cfg.RequestTimeout, "API request timeout")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.AbortOnFailure, "A", cfg.AbortOnFailure, "abort failed multipart uploads")

	if err := fs.Parse(flagx.FilterArgsWithBools(args, append(valueFlags, boolFlags...), boolFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	files := flagx.Positional(args, append(valueFlags, "-c", "-config"))
	if len(files) > 0 {
		cfg.Files = files
	}
	return nil
}
