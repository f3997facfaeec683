package tableops

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/openspm/tableops/internal/stmtcache"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// schemas parsed with the default naming strategy are shared process-wide
var defaultCacheStore = &sync.Map{}

// DB binds a dialector, a connection pool and the shared configuration.
// It is safe for concurrent use.
type DB struct {
	*Config
	Dialector Dialector
	ConnPool  ConnPool

	sqlDB *sql.DB
}

// Open opens a connection pool for dsn with the dialector's driver
func Open(dialector Dialector, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(dialector.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	db, err := New(dialector, sqlDB, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.sqlDB = sqlDB
	return db, nil
}

// New wraps an existing pool, such as an *sql.DB, *sql.Tx or *sql.Conn
func New(dialector Dialector, pool ConnPool, opts ...Option) (*DB, error) {
	if dialector == nil {
		return nil, fmt.Errorf("%w: dialector required", ErrInvalidDB)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: connection pool required", ErrInvalidDB)
	}

	config := &Config{}
	for _, opt := range opts {
		opt(config)
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now().Local() }
	}

	if config.cacheStore == nil {
		if ns, ok := config.NamingStrategy.(schema.NamingStrategy); ok && ns == (schema.NamingStrategy{}) {
			config.cacheStore = defaultCacheStore
		} else {
			config.cacheStore = &sync.Map{}
		}
	}

	db := &DB{Config: config, Dialector: dialector, ConnPool: pool}
	if config.PrepareStmt {
		preparer, ok := pool.(Preparer)
		if !ok {
			return nil, fmt.Errorf("%w: %T cannot prepare statements", ErrInvalidDB, pool)
		}
		db.ConnPool = NewPreparedStmtDB(preparer, stmtcache.New(config.PrepareStmtMaxSize, config.PrepareStmtTTL))
	}
	return db, nil
}

// Parse returns the cached schema of model
func (db *DB) Parse(model interface{}) (*schema.Schema, error) {
	return schema.Parse(model, db.cacheStore, db.NamingStrategy)
}

// DB returns the *sql.DB opened by Open, or the pool handed to New when it is one
func (db *DB) DB() (*sql.DB, error) {
	if db.sqlDB != nil {
		return db.sqlDB, nil
	}
	if sqlDB, ok := db.ConnPool.(*sql.DB); ok {
		return sqlDB, nil
	}
	if prepared, ok := db.ConnPool.(*PreparedStmtDB); ok {
		if sqlDB, ok := prepared.ConnPool.(*sql.DB); ok {
			return sqlDB, nil
		}
	}
	return nil, ErrInvalidDB
}

// Close closes cached statements and the pool opened by Open
func (db *DB) Close() error {
	var err error
	if prepared, ok := db.ConnPool.(*PreparedStmtDB); ok {
		err = multierr.Append(err, prepared.Close())
	}
	if db.sqlDB != nil {
		err = multierr.Append(err, db.sqlDB.Close())
	}
	return err
}

// Exec runs a statement outside any table, tracing it like table operations
func (db *DB) Exec(ctx context.Context, sql string, vars ...interface{}) (int64, error) {
	stmt := db.statement(nil)
	stmt.SQL.WriteString(sql)
	stmt.Vars = vars

	rowsAffected, err := db.exec(ctx, stmt)
	return rowsAffected, db.report(ctx, "exec", stmt, err)
}

// Count runs a single-value count query
func (db *DB) Count(ctx context.Context, sql string, vars ...interface{}) (int64, error) {
	stmt := db.statement(nil)
	stmt.SQL.WriteString(sql)
	stmt.Vars = vars

	var count int64
	if err := db.queryRow(ctx, stmt, &count); err != nil {
		return 0, db.report(ctx, "count", stmt, err)
	}
	return count, nil
}
