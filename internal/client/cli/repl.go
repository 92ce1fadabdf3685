package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Dashboard(ctx context.Context) error
	Students(ctx context.Context, args []string) error
	Staff(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: login, help, exit"
	helpLoggedIn  = "Available commands: dashboard, students, staff, export, whoami, change-password, logout, help, exit\n" +
		"  students list [page=N] [search=TEXT] [standard=5th] [section=A]\n" +
		"  students get|update|delete <id>, students create, students photo <id> <file>|--remove\n" +
		"  staff list [page=N] [search=TEXT] [department=Arts] [active=true|false]\n" +
		"  staff get|update|delete|permissions|activate|deactivate <id>, staff create\n" +
		"  export students|staff"
)

// runREPL starts a simple read–eval–print loop for the console.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Unknown commands are reported back to the user. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors through the notifier. This keeps the REPL loop resilient
// and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("schooldesk %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami", "profile":
			_ = a.Profile(ctx)

		case "change-password":
			_ = a.ChangePassword(ctx)

		case "d", "dashboard":
			_ = a.Dashboard(ctx)

		case "students":
			_ = a.Students(ctx, args)

		case "staff":
			_ = a.Staff(ctx, args)

		case "export":
			_ = a.Export(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
