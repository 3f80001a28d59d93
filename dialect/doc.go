// Package dialect abstracts the supported database engines behind a
// minimal driver interface.
//
// # Supported Dialects
//
// Each dialect is identified by the constant string it registers with
// database/sql:
//
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.SQLite    = "sqlite"
//	dialect.SQLServer = "sqlserver"
//
// # Driver Interface
//
// Driver is the only surface the query core sees. It executes statements,
// opens transactions, and reports its dialect:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The concrete implementation lives in dialect/sql, which wraps a
// database/sql connection pool:
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Instrumentation
//
// Debug wraps any Driver and logs every statement with its arguments:
//
//	drv = dialect.Debug(drv, slog.Default())
//
// dialect/sql additionally offers a StatsDriver collecting statement
// counts, durations, and slow-query detection.
package dialect
