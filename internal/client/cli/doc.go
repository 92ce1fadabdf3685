// Package cli provides the interactive school admin console.
//
// The console restores the previous session on start (printing "Loading…"
// until the bootstrap finishes), then runs a REPL. Every screen command is
// checked by the route guard before it touches a store, so an anonymous
// user is sent to login and a user without the needed permission is sent to
// the unauthorized screen.
//
// Commands:
//   - login / logout / whoami / change-password
//   - dashboard
//   - students list|get|create|update|delete|photo
//   - staff list|get|create|update|delete|permissions|activate|deactivate
//   - export students|staff
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, Screen and runREPL for details.
package cli
