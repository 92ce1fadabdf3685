package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dmitrijs2005/schooldesk/internal/buildinfo"
	"github.com/dmitrijs2005/schooldesk/internal/client/cli"
	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/config"
	"github.com/dmitrijs2005/schooldesk/internal/client/credentials"
	"github.com/dmitrijs2005/schooldesk/internal/client/export"
	"github.com/dmitrijs2005/schooldesk/internal/client/metrics"
	"github.com/dmitrijs2005/schooldesk/internal/client/services"
	"github.com/dmitrijs2005/schooldesk/internal/client/session"
	"github.com/dmitrijs2005/schooldesk/internal/client/storage"
	"github.com/dmitrijs2005/schooldesk/internal/client/validation"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	logger := logging.NewTextLogger(w, cfg.LogLevel)

	db, err := storage.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)
	defer logTotals(logger, reg)

	api := client.New(cfg.ServerURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger),
		client.WithMetrics(mt),
	)

	screen := cli.NewScreen()
	mgr := session.NewManager(ctx, api, credentials.NewStore(db, logger),
		session.WithNavigator(screen),
		session.WithLogger(logger),
		session.WithMetrics(mt),
	)
	api.SetTokenSource(mgr)

	sink, err := export.NewSink(ctx, cfg)
	if err != nil {
		return err
	}

	v := validation.New()
	app := cli.NewApp(cli.Deps{
		Session:         mgr,
		Screen:          screen,
		Students:        services.NewStudentStore(api, v, logger),
		Staff:           services.NewStaffStore(api, v, logger),
		Dashboard:       services.NewDashboard(api, api, logger),
		Exporter:        export.NewExporter(sink, logger),
		Validator:       v,
		Logger:          logger,
		NotificationTTL: cfg.NotificationTTL,
	})
	return app.Run(ctx)
}

func logTotals(l logging.Logger, reg *prometheus.Registry) {
	totals, err := metrics.Totals(reg)
	if err != nil {
		l.Warn(context.Background(), "gather metrics", "error", err)
		return
	}
	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Strings(names)

	args := make([]any, 0, 2*len(names))
	for _, n := range names {
		args = append(args, n, totals[n])
	}
	l.Info(context.Background(), "session totals", args...)
}
