package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"

	"github.com/angelmondragon/poslite-backend/internal/backup"
	"github.com/angelmondragon/poslite-backend/internal/export"
	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/internal/reports"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	"github.com/angelmondragon/poslite-backend/pkg/db"
	"github.com/angelmondragon/poslite-backend/pkg/i18n"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/migrate"
	"github.com/angelmondragon/poslite-backend/pkg/security"
)

type options struct {
	cmd      string
	src      string
	out      string
	start    string
	end      string
	group    string
	lang     string
	width    int
	password string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "posctl", Output: os.Stderr})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "", "command: backup|restore|backups|export-inventory|export-sales|chart|hash-password|stats")
	flag.StringVar(&opts.src, "src", "", "backup file to restore (for restore)")
	flag.StringVar(&opts.out, "out", "", "output file (defaults to stdout)")
	flag.StringVar(&opts.start, "start", "", "first day YYYY-MM-DD (for chart)")
	flag.StringVar(&opts.end, "end", "", "last day YYYY-MM-DD (for chart)")
	flag.StringVar(&opts.group, "group", "product", "chart grouping: product|day")
	flag.StringVar(&opts.lang, "lang", "", "label language: en|es|fr")
	flag.IntVar(&opts.width, "width", 40, "chart width in cells")
	flag.StringVar(&opts.password, "password", "", "password to hash (read from stdin when empty)")
	flag.Parse()

	if opts.cmd == "hash-password" {
		if err := hashPassword(opts, os.Stdin, os.Stdout); err != nil {
			fail(err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "posctl",
		Level:       cfg.App.LogLevel,
		Output:      os.Stderr,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "env": cfg.App.Env})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "posctl command failed", err)
		fail(err)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) (err error) {
	backups := backup.NewManager(cfg.DB, cfg.Backup, nil, nil)

	// backup and restore work on the file directly, no open connection
	switch opts.cmd {
	case "backup":
		path, err := backups.Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "restore":
		if opts.src == "" {
			return fmt.Errorf("missing -src for restore")
		}
		if err := backups.Restore(ctx, opts.src); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "src", opts.src), "backup.restored")
		return nil
	case "backups":
		entries, err := backups.List()
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fmt.Println(entry.String())
		}
		return nil
	case "export-inventory", "export-sales", "chart", "stats":
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	location, err := cfg.App.Location()
	if err != nil {
		return err
	}
	dbClient, err := db.New(ctx, cfg.DB, nil)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	svc, err := ledger.NewService(ledger.ServiceParams{
		Repo:     ledger.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Logger:   logg,
		Location: location,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(opts.out)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeOut()) }()

	lang := i18n.Resolve(opts.lang, cfg.App.DefaultLanguage)

	switch opts.cmd {
	case "export-inventory", "export-sales":
		exporter, err := export.NewExporter(svc)
		if err != nil {
			return err
		}
		if opts.cmd == "export-inventory" {
			return exporter.WriteInventory(ctx, out, lang)
		}
		return exporter.WriteSales(ctx, out, lang)

	case "chart":
		if opts.start == "" || opts.end == "" {
			return fmt.Errorf("-start and -end are required for chart")
		}
		group, err := reports.ParseGroup(opts.group)
		if err != nil {
			return err
		}
		reportSvc, err := reports.NewService(svc)
		if err != nil {
			return err
		}
		bars, err := reportSvc.Bars(ctx, opts.start, opts.end, group)
		if err != nil {
			return err
		}
		return reports.RenderBars(out, reports.Title(lang, group, opts.start, opts.end), bars, opts.width)

	default:
		stats, err := svc.ComputeDashboardStats(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\t%s\n%s\t%d\n%s\t%d\n%s\t%d\n%s\t%s\n",
			i18n.Lookup(lang, i18n.KeyDate), stats.Date,
			i18n.Lookup(lang, i18n.KeyTotalProducts), stats.TotalProducts,
			i18n.Lookup(lang, i18n.KeyLowStockCount), stats.LowStockCount,
			i18n.Lookup(lang, i18n.KeySales), stats.TodaySalesCount,
			i18n.Lookup(lang, i18n.KeyTodaySales), stats.TodaySalesTotal.StringFixed(2),
		)
		return err
	}
}

func hashPassword(opts options, in io.Reader, out io.Writer) error {
	var pwd config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &pwd); err != nil {
		return fmt.Errorf("parsing password config: %w", err)
	}
	password := opts.password
	if password == "" {
		var err error
		if password, err = security.ReadPassword(in); err != nil {
			return err
		}
	}
	hash, err := security.HashPassword(password, pwd)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "posctl:", err)
	os.Exit(1)
}
