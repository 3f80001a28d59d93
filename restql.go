// Package restql compiles schema-driven REST query parameters into
// parameterized SQL and reshapes the results.
//
// A Client introspects tables from the live database catalog, validates
// raw field/filter/relation/sort parameters against the resulting
// schemas, compiles them for the configured dialect, and un-flattens the
// joined rows into nested records. Dotted paths ("customer.address.city")
// traverse foreign-key relations; every value reaches the database as a
// bind parameter.
package restql

import (
	"log/slog"
	"time"

	"github.com/syssam/restql/dialect"
	sqldrv "github.com/syssam/restql/dialect/sql"
	"github.com/syssam/restql/dialect/sql/inspect"
	"github.com/syssam/restql/policy"
	"github.com/syssam/restql/querylanguage"
)

// Client is the façade over introspection, validation, compilation, and
// execution. It is safe for concurrent use; per-request state lives in
// the request objects, never on the Client.
type Client struct {
	drv       dialect.Driver
	compiler  *sqldrv.Compiler
	loader    querylanguage.SchemaLoader
	validator *querylanguage.Validator
	cache     *SchemaCache
	policy    *policy.Policy

	defaultLimit int
	softDelete   string
	log          *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	log    *slog.Logger
	cache  Cache
	ttl    time.Duration
	loader querylanguage.SchemaLoader
	debug  bool
	pol    *policy.Policy
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// WithCache caches introspected schemas in the given store for ttl.
// Without it every request introspects the catalog afresh.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(o *clientOptions) {
		o.cache = cache
		o.ttl = ttl
	}
}

// WithSchemaLoader replaces catalog introspection with a custom loader.
func WithSchemaLoader(loader querylanguage.SchemaLoader) Option {
	return func(o *clientOptions) { o.loader = loader }
}

// WithDebug logs every statement with its arguments at debug level.
func WithDebug() Option {
	return func(o *clientOptions) { o.debug = true }
}

// WithPolicy evaluates the given access policy before every query and
// mutation. A Deny decision is returned to the caller unexecuted.
func WithPolicy(p policy.Policy) Option {
	return func(o *clientOptions) { o.pol = &p }
}

// Open connects to the database described by the configuration and
// returns a Client. When a slow-query threshold is configured the driver
// is wrapped with statistics collection and slow statement logging.
func Open(cfg *Config, opts ...Option) (*Client, error) {
	o := applyOptions(opts)
	var drv dialect.Driver
	if cfg.SlowQueryThreshold > 0 {
		statsDrv, _, err := sqldrv.OpenWithStats(cfg.Dialect, cfg.DSN,
			sqldrv.WithSlowThreshold(cfg.SlowQueryThreshold),
			sqldrv.WithSlowQueryLog(o.log),
		)
		if err != nil {
			return nil, err
		}
		drv = statsDrv
	} else {
		d, err := sqldrv.Open(cfg.Dialect, cfg.DSN)
		if err != nil {
			return nil, err
		}
		drv = d
	}
	return newClient(drv, cfg, o)
}

// NewClient wraps an already-open driver. Useful for tests and for
// callers managing the connection themselves.
func NewClient(drv dialect.Driver, cfg *Config, opts ...Option) (*Client, error) {
	return newClient(drv, cfg, applyOptions(opts))
}

func applyOptions(opts []Option) *clientOptions {
	o := &clientOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(drv dialect.Driver, cfg *Config, o *clientOptions) (*Client, error) {
	if o.debug {
		drv = dialect.Debug(drv, o.log)
	}
	compiler, err := sqldrv.NewCompiler(drv.Dialect())
	if err != nil {
		return nil, err
	}
	c := &Client{
		drv:          drv,
		compiler:     compiler,
		defaultLimit: cfg.DefaultLimit,
		softDelete:   cfg.SoftDelete,
		policy:       o.pol,
		log:          o.log,
	}
	if c.defaultLimit <= 0 {
		c.defaultLimit = DefaultLimitFallback
	}
	loader := o.loader
	if loader == nil {
		loader = inspect.NewInspector(drv)
	}
	if o.cache != nil {
		c.cache = NewSchemaCache(loader, o.cache, o.ttl)
		loader = c.cache
	}
	c.loader = loader
	c.validator = querylanguage.NewValidator(loader)
	return c, nil
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Close closes the underlying connection.
func (c *Client) Close() error { return c.drv.Close() }
