package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/casdrive/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-i", "-l", "-u", "-p", "-b", "-g", "-e", "-P", "-x", "-m", "-M"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN, "" for in-memory metadata
//	-s string     JWT HMAC secret key
//	-t duration   validity of tokens printed by -i
//	-i string     print an access token for this user id and exit
//	-l string     log level (debug, info, warn, error)
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-P bool       S3 path-style addressing
//	-x duration   presigned URL expiry
//	-m size       multipart threshold (e.g., "128MiB")
//	-M size       maximum upload size
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidity, "t", config.TokenValidity, "issued token validity")
	fs.StringVar(&config.IssueTokenFor, "i", config.IssueTokenFor, "issue a token for user id and exit")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.S3UsePathStyle, "P", config.S3UsePathStyle, "S3 path-style addressing")
	fs.DurationVar(&config.PresignExpiry, "x", config.PresignExpiry, "presigned URL expiry")
	fs.Var(&config.MultipartThreshold, "m", "multipart threshold")
	fs.Var(&config.MaxUploadSize, "M", "maximum upload size")

	if err := fs.Parse(flagx.FilterArgsWithBools(args, serverFlags, []string{"-P"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
