package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/access"
	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/export"
	"github.com/dmitrijs2005/schooldesk/internal/client/guard"
	"github.com/dmitrijs2005/schooldesk/internal/client/services"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/dmitrijs2005/schooldesk/internal/client/ui"
	"github.com/dmitrijs2005/schooldesk/internal/client/validation"
	"github.com/dmitrijs2005/schooldesk/internal/common"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"github.com/pterm/pterm"
)

// getSimpleText, getSecret and getConfirm are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getConfirm    = GetConfirm
)

// Deps are the collaborators the console is built from.
type Deps struct {
	Session   *session.Manager
	Bootstrap *session.Bootstrap
	Screen    *Screen
	Students  *services.StudentStore
	Staff     *services.StaffStore
	Dashboard *services.Dashboard
	Exporter  *export.Exporter
	Validator *validation.Validator
	Logger    logging.Logger

	// NotificationTTL is how long a notification stays current.
	NotificationTTL time.Duration

	// In and Out default to the process stdin and stdout.
	In  io.Reader
	Out io.Writer
}

type App struct {
	session   *session.Manager
	boot      *session.Bootstrap
	screen    *Screen
	students  *services.StudentStore
	staff     *services.StaffStore
	dashboard *services.Dashboard
	exporter  *export.Exporter
	validate  *validation.Validator
	notifier  *ui.Notifier
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(d Deps) *App {
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Screen == nil {
		d.Screen = NewScreen()
	}
	if d.Bootstrap == nil {
		d.Bootstrap = session.NewBootstrap(d.Session)
	}

	a := &App{
		session:   d.Session,
		boot:      d.Bootstrap,
		screen:    d.Screen,
		students:  d.Students,
		staff:     d.Staff,
		dashboard: d.Dashboard,
		exporter:  d.Exporter,
		validate:  d.Validator,
		log:       d.Logger.With("component", "cli"),
		reader:    bufio.NewReader(d.In),
		out:       d.Out,
	}
	a.notifier = ui.NewNotifier(d.NotificationTTL, ui.OnShow(a.printNotification))
	a.screen.OnChange(a.viewChanged)
	return a
}

// Run restores the session, opens the dashboard (or login) and runs the
// REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	a.boot.Start(ctx)
	if !a.boot.Ready() {
		a.print(pterm.Info.Sprintln("Loading…"))
	}
	res, err := a.boot.Wait(ctx)
	if err != nil {
		return err
	}
	if client.KindOf(res.Err) == client.KindNetwork {
		a.notifier.Warning("Cannot reach the server. Your session is kept until it is back.")
	}

	a.Root(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) print(s string) {
	fmt.Fprint(a.out, s)
}

func (a *App) printNotification(n ui.Notification) {
	var p pterm.PrefixPrinter
	switch n.Severity {
	case ui.SeveritySuccess:
		p = pterm.Success
	case ui.SeverityError:
		p = pterm.Error
	case ui.SeverityWarning:
		p = pterm.Warning
	default:
		p = pterm.Info
	}
	a.print(p.Sprintln(n.Message))
}

// viewChanged reacts to navigation started outside a command, i.e. the
// session ending on its own.
func (a *App) viewChanged(_, to session.View) {
	if to == session.ViewLogin && !a.session.IsAuthenticated() {
		a.students.Reset()
		a.staff.Reset()
	}
}

// open runs the route guard for view and moves the screen. It returns true
// when the view may render.
func (a *App) open(ctx context.Context, view session.View) bool {
	snap := a.session.Snapshot()
	final, d, err := guard.Resolve(snap, view)
	if err != nil {
		a.notifier.Error(err.Error())
		return false
	}
	if d == guard.ShowLoading {
		a.print(pterm.Info.Sprintln("Loading…"))
		return false
	}

	a.screen.set(final)
	if final == view {
		return true
	}
	a.log.Debug(ctx, "guard redirect", "from", string(view), "to", string(final))
	switch final {
	case session.ViewLogin:
		a.notifier.Warning("Please log in to continue.")
	case session.ViewUnauthorized:
		a.notifier.Error("You do not have permission to access this page.")
	}
	return false
}

// allowed checks an action-level permission inside an open view.
func (a *App) allowed(module, action string) bool {
	if access.Can(a.session.CurrentUser(), module, action) {
		return true
	}
	a.notifier.Error(fmt.Sprintf("You do not have permission to %s %s.", action, module))
	return false
}

// report turns err into a notification and returns it.
func (a *App) report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	a.log.Debug(ctx, "command failed", "error", err)

	if fields := validation.FieldErrors(err); len(fields) > 0 {
		for _, f := range fields {
			a.print(pterm.Error.Sprintfln("%s: %s", f.Field, f.Message))
		}
		a.notifier.Error("Please correct the highlighted fields.")
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case client.KindOf(err) == client.KindNetwork:
		a.notifier.Error("Cannot reach the server. Check your connection and try again.")
	case client.KindOf(err) == client.KindAuthentication && !a.session.IsAuthenticated():
		a.notifier.Error("Your session has expired. Please log in again.")
	default:
		a.notifier.Error(client.Message(err))
	}
	return err
}

// form collects answers to a series of prompts. After the first input
// error every further prompt is skipped and err is kept.
type form struct {
	a   *App
	err error
}

func (a *App) form() *form {
	return &form{a: a}
}

// text asks for a value; an empty answer keeps current.
func (f *form) text(label, current string) string {
	if f.err != nil {
		return current
	}
	prompt := label
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]", label, current)
	}
	v, err := getSimpleText(f.a.reader, prompt, f.a.out)
	if err != nil {
		f.err = err
		return current
	}
	if v == "" {
		return current
	}
	return v
}

func (f *form) secret(label string) string {
	if f.err != nil {
		return ""
	}
	b, err := getSecret(f.a.out, label)
	if err != nil {
		f.err = err
		return ""
	}
	s := string(b)
	common.WipeByteArray(b)
	return s
}

func (f *form) confirm(label string) bool {
	if f.err != nil {
		return false
	}
	ok, err := getConfirm(f.a.reader, label, f.a.out)
	if err != nil {
		f.err = err
		return false
	}
	return ok
}
