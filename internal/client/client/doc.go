// Package client is the single HTTP entry point to the school records API.
//
// Every call goes through (*HTTPClient).Do, which attaches the bearer token
// supplied by a TokenSource, tags the attempt with an X-Request-ID, applies
// the configured timeout and normalises every failure into *Error.
//
// A 401 whose message says the access token expired is handled once per
// request: the client asks the TokenSource to refresh, then re-issues the
// original request with the new token. Concurrent callers share the
// TokenSource's single in-flight refresh. A failed refresh, a second 401 or
// a 401 that is not expiry-shaped expires the session through the
// TokenSource. Requests flagged NoAuthRecovery (login, refresh, logout)
// bypass all of this.
package client
