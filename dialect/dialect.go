package dialect

import (
	"context"
	"log/slog"
	"time"
)

// Dialect names, as registered with database/sql.
const (
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// ExecQuerier wraps the Exec and Query operations shared by
// drivers and transactions.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. The v argument
	// is expected to be nil or a *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. The v argument is
	// expected to be a *sql.Rows wrapper.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the minimal interface the query core needs from a database
// connection. Implementations acquire a connection per statement and
// release it when the statement (or its row set) is done.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is a database transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// DebugDriver wraps a Driver and logs every statement with its arguments
// before delegating.
type DebugDriver struct {
	Driver
	log *slog.Logger
}

// Debug returns a DebugDriver logging to the given slog logger.
// A nil logger falls back to slog.Default.
func Debug(d Driver, log *slog.Logger) *DebugDriver {
	if log == nil {
		log = slog.Default()
	}
	return &DebugDriver{Driver: d, log: log}
}

// Exec logs its arguments and calls the underlying driver.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.log.LogAttrs(ctx, slog.LevelDebug, "exec",
		slog.String("query", query),
		slog.Any("args", args),
		slog.Duration("took", time.Since(start)),
	)
	return err
}

// Query logs its arguments and calls the underlying driver.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.log.LogAttrs(ctx, slog.LevelDebug, "query",
		slog.String("query", query),
		slog.Any("args", args),
		slog.Duration("took", time.Since(start)),
	)
	return err
}

// Tx starts a transaction on the underlying driver. The returned
// transaction logs through the same logger.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, log: d.log, ctx: ctx}, nil
}

type debugTx struct {
	Tx
	log *slog.Logger
	ctx context.Context
}

func (t *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	err := t.Tx.Exec(ctx, query, args, v)
	t.log.LogAttrs(ctx, slog.LevelDebug, "tx.exec",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return err
}

func (t *debugTx) Query(ctx context.Context, query string, args, v any) error {
	err := t.Tx.Query(ctx, query, args, v)
	t.log.LogAttrs(ctx, slog.LevelDebug, "tx.query",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return err
}
