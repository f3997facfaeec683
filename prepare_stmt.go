package tableops

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"

	"github.com/openspm/tableops/internal/stmtcache"
)

// PreparedStmtDB is a ConnPool running every statement through a cached
// prepared statement keyed by its SQL text
type PreparedStmtDB struct {
	Stmts    stmtcache.Store
	Mux      *sync.RWMutex
	ConnPool Preparer
}

func NewPreparedStmtDB(connPool Preparer, stmts stmtcache.Store) *PreparedStmtDB {
	return &PreparedStmtDB{
		ConnPool: connPool,
		Stmts:    stmts,
		Mux:      &sync.RWMutex{},
	}
}

// Close closes every cached statement, the pool itself stays open
func (db *PreparedStmtDB) Close() error {
	db.Mux.Lock()
	defer db.Mux.Unlock()
	if db.Stmts == nil {
		return nil
	}

	db.Stmts.Purge()
	db.Stmts = nil
	return nil
}

func (db *PreparedStmtDB) prepare(ctx context.Context, query string) (*stmtcache.Stmt, error) {
	db.Mux.RLock()
	if db.Stmts == nil {
		db.Mux.RUnlock()
		return nil, ErrInvalidDB
	}
	if stmt, ok := db.Stmts.Get(query); ok {
		db.Mux.RUnlock()
		if stmt.Error() != nil {
			return nil, stmt.Error()
		}
		return stmt, nil
	}
	db.Mux.RUnlock()

	db.Mux.Lock()
	// double check
	if db.Stmts == nil {
		db.Mux.Unlock()
		return nil, ErrInvalidDB
	}
	if stmt, ok := db.Stmts.Get(query); ok {
		db.Mux.Unlock()
		if stmt.Error() != nil {
			return nil, stmt.Error()
		}
		return stmt, nil
	}

	// New releases the lock before preparing so a full pool cannot block
	// other statements on this one
	return db.Stmts.New(ctx, query, db.ConnPool, db.Mux)
}

func (db *PreparedStmtDB) discard(query string, err error) {
	if !errors.Is(err, driver.ErrBadConn) {
		return
	}
	db.Mux.Lock()
	defer db.Mux.Unlock()
	if db.Stmts != nil {
		db.Stmts.Delete(query)
	}
}

func (db *PreparedStmtDB) ExecContext(ctx context.Context, query string, args ...interface{}) (result sql.Result, err error) {
	stmt, err := db.prepare(ctx, query)
	if err == nil {
		result, err = stmt.ExecContext(ctx, args...)
		db.discard(query, err)
	}
	return result, err
}

func (db *PreparedStmtDB) QueryContext(ctx context.Context, query string, args ...interface{}) (rows *sql.Rows, err error) {
	stmt, err := db.prepare(ctx, query)
	if err == nil {
		rows, err = stmt.QueryContext(ctx, args...)
		db.discard(query, err)
	}
	return rows, err
}

func (db *PreparedStmtDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	stmt, err := db.prepare(ctx, query)
	if err == nil {
		return stmt.QueryRowContext(ctx, args...)
	}
	// *sql.Row cannot carry err, so the query runs unprepared on the pool,
	// closed cache included; callers that must see err use QueryContext
	return db.ConnPool.QueryRowContext(ctx, query, args...)
}
