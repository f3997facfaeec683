// Command openspm inspects and maintains an openSPM database.
//
//	openspm [-config openspm.yaml] [-dialect sqlite] [-dsn openspm.db] command [args]
//
// Commands:
//
//	migrate [-drop]                         create missing tables
//	entities                                list entity names and their tables
//	count <entity> [-where F:v;F:v]         count records
//	list <entity> [-sort F] [-desc] [-page N] [-size N] [-where F:v;F:v]
//	get <entity> <key>...                   show one record
//	delete <entity> <key>...                delete one record
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/dialect"
	"github.com/openspm/tableops/internal/models"
	"github.com/openspm/tableops/migrator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	flags := flag.NewFlagSet("openspm", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "openspm.yaml", "YAML configuration file")
	dialectName := flags.String("dialect", "", "Database dialect: "+strings.Join(dialect.Names(), ", "))
	dsn := flags.String("dsn", "", "Data source name")
	logFormat := flags.String("log", "", "Log format: text, zap, zerolog, logrus, slog")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	explicit := false
	flags.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
	config, err := loadConfig(*configPath, explicit, getenv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *dialectName != "" {
		config.Dialect = *dialectName
	}
	if *dsn != "" {
		config.DSN = *dsn
	}
	if *logFormat != "" {
		config.Log.Format = *logFormat
	}

	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	opts, err := config.Options(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	db, err := dialect.Open(config.Dialect, config.DSN, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer db.Close()

	cmd := &command{db: db, config: config, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, flags.Arg(0), flags.Args()[1:]); err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

type command struct {
	db     *tableops.DB
	config Config
	stdout io.Writer
	stderr io.Writer
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "migrate":
		return c.migrate(ctx, args)
	case "entities":
		return c.entities()
	case "count", "list", "get", "delete":
		if len(args) == 0 {
			return fmt.Errorf("%w: openspm %s <entity>, entities: %s", errUsage, name, strings.Join(entities.names(), ", "))
		}
		e, err := entities.open(c.db, args[0])
		if err != nil {
			return err
		}
		switch name {
		case "count":
			return c.count(ctx, e, args[1:])
		case "list":
			return c.list(ctx, e, args[1:])
		case "get":
			return c.get(ctx, e, args[1:])
		default:
			return c.delete(ctx, e, args[1:])
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, name)
}

func (c *command) flagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	return flags
}

func (c *command) migrate(ctx context.Context, args []string) error {
	flags := c.flagSet("migrate")
	drop := flags.Bool("drop", false, "Drop existing tables first")
	if err := flags.Parse(args); err != nil {
		return err
	}

	m := migrator.New(c.db)
	if *drop {
		if err := m.DropTable(ctx, models.All()...); err != nil {
			return err
		}
	}
	if err := m.AutoMigrate(ctx, models.All()...); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "migrated %d tables\n", len(models.All()))
	return nil
}

func (c *command) entities() error {
	tables := make(map[string]string, len(entities))
	for _, name := range entities.names() {
		e, err := entities.open(c.db, name)
		if err != nil {
			return err
		}
		tables[name] = e.Schema().Table
	}
	return c.print(tables)
}

func (c *command) count(ctx context.Context, e entity, args []string) error {
	flags := c.flagSet("count")
	where := flags.String("where", "", "Filter, e.g. Severity:>=3;Title:kb*")
	if err := flags.Parse(args); err != nil {
		return err
	}

	count, err := e.Count(ctx, *where)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, count)
	return nil
}

func (c *command) list(ctx context.Context, e entity, args []string) error {
	flags := c.flagSet("list")
	var (
		sortField = flags.String("sort", "", "Sort field, the key when empty")
		desc      = flags.Bool("desc", false, "Sort descending")
		page      = flags.Int("page", 1, "Page number, from 1")
		size      = flags.Int("size", c.config.PageSize, "Page size")
		where     = flags.String("where", "", "Filter, e.g. Severity:>=3;Title:kb*")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	records, err := e.List(ctx, *sortField, !*desc, *page, *size, *where)
	if err != nil {
		return err
	}
	return c.print(records)
}

func (c *command) get(ctx context.Context, e entity, keys []string) error {
	record, err := e.Get(ctx, keys)
	if err != nil {
		return err
	}
	return c.print(record)
}

func (c *command) delete(ctx context.Context, e entity, keys []string) error {
	deleted, err := e.Delete(ctx, keys)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %d\n", deleted)
	return nil
}

func (c *command) print(v interface{}) error {
	enc := yaml.NewEncoder(c.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
