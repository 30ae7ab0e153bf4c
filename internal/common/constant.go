// Package common contains shared constants and sentinel errors used across
// casdrive components.
package common

// AuthorizationHeader carries the bearer access token on API requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token inside AuthorizationHeader.
const BearerPrefix = "Bearer "

// RequestIDHeader correlates client and server log lines for one request.
const RequestIDHeader = "X-Request-Id"

// DefaultContentType is recorded when a client does not send one.
const DefaultContentType = "application/octet-stream"
