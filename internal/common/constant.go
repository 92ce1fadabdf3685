// Package common contains shared constants and sentinel errors used across
// the console packages.
package common

// AuthorizationHeaderName carries the bearer access token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName tags every outbound attempt so server logs can be
// correlated with the console log.
const RequestIDHeaderName = "X-Request-ID"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// Credential store keys. They mirror the keys the web console kept in
// localStorage so a record can be inspected with any SQLite browser.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// TokenExpiredMessages lists the server messages that mark a 401 as
// "access token expired" rather than "not authenticated".
var TokenExpiredMessages = []string{
	"Access token has expired",
	"Invalid token",
	"jwt expired",
	"Token expired",
}
