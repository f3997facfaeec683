package tableops

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openspm/tableops/logger"
)

func (db *DB) translate(err error) error {
	if err == nil {
		return nil
	}
	if translator, ok := db.Dialector.(ErrorTranslator); ok {
		return translator.Translate(err)
	}
	return err
}

func (db *DB) trace(ctx context.Context, begin time.Time, stmt *Statement, rowsAffected int64, err error) {
	db.Logger.Trace(ctx, begin, func() (string, int64) {
		sql, vars := stmt.SQL.String(), stmt.Vars
		if filter, ok := db.Logger.(logger.ParamsFilter); ok {
			sql, vars = filter.ParamsFilter(ctx, stmt.SQL.String(), stmt.Vars...)
		}
		return db.Dialector.Explain(sql, vars...), rowsAffected
	}, err)
}

// execResult runs stmt and returns the driver result for identity lookups
func (db *DB) execResult(ctx context.Context, stmt *Statement) (sql.Result, int64, error) {
	var (
		begin        = time.Now()
		rowsAffected int64
	)

	result, err := db.ConnPool.ExecContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err == nil {
		rowsAffected, err = result.RowsAffected()
	}
	err = db.translate(err)
	db.trace(ctx, begin, stmt, rowsAffected, err)
	return result, rowsAffected, err
}

func (db *DB) exec(ctx context.Context, stmt *Statement) (int64, error) {
	_, rowsAffected, err := db.execResult(ctx, stmt)
	return rowsAffected, err
}

// queryRow scans the single row of stmt into dest, ErrRecordNotFound when
// there is none
func (db *DB) queryRow(ctx context.Context, stmt *Statement, dest ...interface{}) error {
	begin := time.Now()

	// QueryContext rather than QueryRowContext, so a statement that cannot be
	// prepared fails here instead of running unprepared
	rows, err := db.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err == nil {
		if rows.Next() {
			err = rows.Scan(dest...)
		} else if err = rows.Err(); err == nil {
			err = sql.ErrNoRows
		}
		if closeErr := rows.Close(); err == nil {
			err = closeErr
		}
	}

	var rowsAffected int64
	switch {
	case err == nil:
		rowsAffected = 1
	case errors.Is(err, sql.ErrNoRows):
		err = ErrRecordNotFound
	default:
		err = db.translate(err)
	}
	db.trace(ctx, begin, stmt, rowsAffected, err)
	return err
}

// query calls fn for every row of stmt
func (db *DB) query(ctx context.Context, stmt *Statement, fn func(*sql.Rows) error) (int64, error) {
	var (
		begin        = time.Now()
		rowsAffected int64
	)

	rows, err := db.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err == nil {
		for rows.Next() {
			if err = fn(rows); err != nil {
				break
			}
			rowsAffected++
		}
		if err == nil {
			err = rows.Err()
		}
		if closeErr := rows.Close(); err == nil {
			err = closeErr
		}
	}
	err = db.translate(err)
	db.trace(ctx, begin, stmt, rowsAffected, err)
	return rowsAffected, err
}

// report sends err to the logger's error sink and returns it. A missing
// record is an outcome, not a failure, so it is returned without logging.
func (db *DB) report(ctx context.Context, op string, stmt *Statement, err error) error {
	if err == nil || errors.Is(err, ErrRecordNotFound) {
		return err
	}
	if stmt != nil && stmt.Schema != nil {
		db.Logger.Error(ctx, "%s %s: %v", op, stmt.Schema.Table, err)
	} else {
		db.Logger.Error(ctx, "%s: %v", op, err)
	}
	return err
}
