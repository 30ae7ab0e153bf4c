// Package config loads runtime configuration for the casdrive uploader.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Arguments that are not flags name the files to upload.
//
// # JSON schema
//
// Sizes accept "128MiB" or a byte count, durations accept "30s" or
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "access_token": "eyJ...",
//	  "space_id": "personal",
//	  "chunk_size": "128MiB",
//	  "concurrency": 4,
//	  "part_retries": 3,
//	  "hash_window": "20MiB",
//	  "abort_on_failure": true
//	}
package config
