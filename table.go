package tableops

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openspm/tableops/schema"
	"github.com/openspm/tableops/utils"
)

// Table maps model T onto its table: counting, paging, point lookups and
// single-record writes. A Table keeps the key rows of its last paged query,
// so it is meant for one request at a time and is not safe for concurrent use.
type Table[T any] struct {
	db        *DB
	schema    *schema.Schema
	templates *schema.Templates
	cache     keyCache
}

// keyCache holds the ordered key tuples of the last paged query. An empty
// cache is reloaded on every query.
type keyCache struct {
	signature string
	keys      [][]interface{}
}

// NewTable binds model T to db
func NewTable[T any](db *DB) (*Table[T], error) {
	s, err := db.Parse(new(T))
	if err != nil {
		return nil, db.report(context.Background(), "parse", nil, err)
	}

	return &Table[T]{
		db:        db,
		schema:    s,
		templates: s.Templates(db.Dialector),
	}, nil
}

// Schema returns the reflected metadata of T
func (t *Table[T]) Schema() *schema.Schema {
	return t.schema
}

// KeyCacheLen returns the number of cached key rows
func (t *Table[T]) KeyCacheLen() int {
	return len(t.cache.keys)
}

// Invalidate drops the cached key rows, the next paged query reloads them
func (t *Table[T]) Invalidate() {
	t.cache = keyCache{}
}

func (t *Table[T]) statement() *Statement {
	return t.db.statement(t.schema)
}

// QueryRecordCount counts the rows matching restrictions
func (t *Table[T]) QueryRecordCount(ctx context.Context, restrictions ...Restriction) (int64, error) {
	stmt := t.statement()
	stmt.SQL.WriteString(t.templates.Count)
	if r := combine(restrictions); !r.IsZero() {
		stmt.SQL.WriteString(" WHERE ")
		stmt.AddClause(r.expr)
	}

	var count int64
	if err := t.db.queryRow(ctx, stmt, &count); err != nil {
		return 0, t.db.report(ctx, "count", stmt, err)
	}
	return count, nil
}

// QueryRecords returns page (1-based) of the rows matching restrictions,
// sorted by sortField, or by the primary key when sortField is empty.
// The ordered keys are loaded once per sort and restriction and paged in
// memory; each record on the page is then loaded by key.
func (t *Table[T]) QueryRecords(ctx context.Context, sortField string, ascending bool, page, pageSize int, restrictions ...Restriction) ([]T, error) {
	stmt := t.statement()
	if page < 1 || pageSize < 1 {
		return nil, t.db.report(ctx, "query", stmt, fmt.Errorf("%w: page %d of size %d", ErrInvalidPage, page, pageSize))
	}
	if !t.schema.HasPrimaryKey() {
		return nil, t.db.report(ctx, "query", stmt, fmt.Errorf("%w: %s", ErrPrimaryKeyRequired, t.schema))
	}

	order, err := t.orderBy(sortField, ascending)
	if err != nil {
		return nil, t.db.report(ctx, "query", stmt, err)
	}

	where := t.statement()
	where.AddClause(combine(restrictions).expr)

	signature := fmt.Sprintf("%s|%s|%#v", order, where.SQL.String(), where.Vars)
	if len(t.cache.keys) == 0 || t.cache.signature != signature {
		if err := t.loadKeys(ctx, order, where); err != nil {
			return nil, err
		}
		t.cache.signature = signature
	}

	records := []T{}
	if page-1 > math.MaxInt/pageSize {
		return records, nil
	}
	skip := (page - 1) * pageSize
	if skip >= len(t.cache.keys) {
		return records, nil
	}
	end := len(t.cache.keys)
	if pageSize < end-skip {
		end = skip + pageSize
	}

	for _, keys := range t.cache.keys[skip:end] {
		record, err := t.load(ctx, keys)
		if errors.Is(err, ErrRecordNotFound) {
			// deleted since the keys were loaded
			t.db.Logger.Warn(ctx, "%s: key %s no longer exists", t.schema.Table, utils.ToStringKey(keys...))
			continue
		}
		if err != nil {
			return nil, t.db.report(ctx, "query", stmt, err)
		}
		records = append(records, *record)
	}
	return records, nil
}

func (t *Table[T]) orderBy(sortField string, ascending bool) (string, error) {
	direction := " ASC"
	if !ascending {
		direction = " DESC"
	}

	var (
		b    strings.Builder
		sort *schema.Field
	)
	if sortField != "" {
		if sort = t.schema.LookUpField(sortField); sort == nil {
			return "", fmt.Errorf("%w: %s has no field %q", ErrInvalidField, t.schema, sortField)
		}
		t.db.Dialector.QuoteTo(&b, sort.DBName)
		b.WriteString(direction)
	}

	// key columns break ties so pages stay stable
	for _, field := range t.schema.PrimaryFields {
		if field == sort {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		t.db.Dialector.QuoteTo(&b, field.DBName)
		if sort == nil {
			b.WriteString(direction)
		} else {
			b.WriteString(" ASC")
		}
	}
	return b.String(), nil
}

func (t *Table[T]) loadKeys(ctx context.Context, order string, where *Statement) error {
	stmt := t.statement()
	if where.SQL.Len() == 0 {
		stmt.SQL.WriteString(fmt.Sprintf(t.templates.OrderBy, order))
	} else {
		stmt.SQL.WriteString(fmt.Sprintf(t.templates.OrderByWhere, where.SQL.String(), order))
		stmt.Vars = where.Vars
	}

	var keys [][]interface{}
	_, err := t.db.query(ctx, stmt, func(rows *sql.Rows) error {
		values := make([]interface{}, len(t.schema.PrimaryFields))
		dest := make([]interface{}, len(values))
		for idx := range values {
			dest[idx] = &values[idx]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		keys = append(keys, values)
		return nil
	})
	if err != nil {
		t.Invalidate()
		return t.db.report(ctx, "query", stmt, err)
	}

	t.cache = keyCache{keys: keys}
	return nil
}

// LoadRecord loads the record with the given key values, in key order.
// It returns ErrRecordNotFound when no row matches.
func (t *Table[T]) LoadRecord(ctx context.Context, keys ...interface{}) (*T, error) {
	record, err := t.load(ctx, keys)
	if err != nil {
		return nil, t.db.report(ctx, "load", t.statement(), err)
	}
	return record, nil
}

func (t *Table[T]) load(ctx context.Context, keys []interface{}) (*T, error) {
	if err := t.checkKeys(keys); err != nil {
		return nil, err
	}

	stmt := t.statement()
	stmt.SQL.WriteString(t.templates.SelectByKey)
	stmt.Vars = keys

	values := make([]interface{}, len(t.templates.SelectColumns))
	dest := make([]interface{}, len(values))
	for idx := range values {
		dest[idx] = &values[idx]
	}
	if err := t.db.queryRow(ctx, stmt, dest...); err != nil {
		return nil, err
	}

	record := new(T)
	rv := reflect.ValueOf(record)
	for idx, field := range t.templates.SelectColumns {
		if err := field.Set(rv, values[idx]); err != nil {
			return nil, err
		}
	}

	// drivers that hand back an empty row for a missing key
	for _, field := range t.schema.PrimaryFields {
		if _, zero := field.ValueOf(rv); !zero {
			return record, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (t *Table[T]) checkKeys(keys []interface{}) error {
	if !t.schema.HasPrimaryKey() {
		return fmt.Errorf("%w: %s", ErrPrimaryKeyRequired, t.schema)
	}
	if len(keys) != len(t.schema.PrimaryFields) {
		return fmt.Errorf("%w: %s expects %d key values, got %d", ErrPrimaryKeyRequired, t.schema, len(t.schema.PrimaryFields), len(keys))
	}
	return nil
}

// AddNewRecord inserts record and writes the database-assigned identity back
// into it. The key cache is cleared.
func (t *Table[T]) AddNewRecord(ctx context.Context, record *T) (int64, error) {
	stmt := t.statement()
	if record == nil {
		return 0, t.db.report(ctx, "add", stmt, ErrModelValueRequired)
	}

	if hook, ok := interface{}(record).(BeforeAddInterface); ok {
		if err := hook.BeforeAdd(t.db); err != nil {
			return 0, t.db.report(ctx, "add", stmt, err)
		}
	}

	rv := reflect.ValueOf(record)
	if err := validate(rv, t.schema.InsertFields); err != nil {
		return 0, t.db.report(ctx, "add", stmt, err)
	}

	stmt.SQL.WriteString(t.templates.Insert)
	for _, field := range t.schema.InsertFields {
		value, _ := field.ValueOf(rv)
		stmt.Vars = append(stmt.Vars, value)
	}

	var (
		rowsAffected int64
		identity     = t.schema.IdentityField
	)
	if t.templates.InsertReturnsIdentity {
		var id interface{}
		if err := t.db.queryRow(ctx, stmt, &id); err != nil {
			return 0, t.db.report(ctx, "add", stmt, err)
		}
		if err := identity.Set(rv, id); err != nil {
			return 0, t.db.report(ctx, "add", stmt, err)
		}
		rowsAffected = 1
	} else {
		result, n, err := t.db.execResult(ctx, stmt)
		if err != nil {
			return 0, t.db.report(ctx, "add", stmt, err)
		}
		rowsAffected = n
		if identity != nil {
			id, err := result.LastInsertId()
			if err == nil {
				err = identity.Set(rv, id)
			}
			if err != nil {
				return rowsAffected, t.db.report(ctx, "add", stmt, err)
			}
		}
	}

	t.Invalidate()
	return rowsAffected, nil
}

// UpdateRecord writes every non-key column of record by its key. The key
// cache is kept unless the DB was opened WithRefreshOnUpdate, so a page
// sorted or filtered on a changed column can be stale until Invalidate.
func (t *Table[T]) UpdateRecord(ctx context.Context, record *T) (int64, error) {
	stmt := t.statement()
	if record == nil {
		return 0, t.db.report(ctx, "update", stmt, ErrModelValueRequired)
	}
	if !t.schema.HasPrimaryKey() {
		return 0, t.db.report(ctx, "update", stmt, fmt.Errorf("%w: %s", ErrPrimaryKeyRequired, t.schema))
	}

	if hook, ok := interface{}(record).(BeforeUpdateInterface); ok {
		if err := hook.BeforeUpdate(t.db); err != nil {
			return 0, t.db.report(ctx, "update", stmt, err)
		}
	}

	rv := reflect.ValueOf(record)
	if err := validate(rv, t.schema.UpdateFields); err != nil {
		return 0, t.db.report(ctx, "update", stmt, err)
	}

	// key-only tables have nothing to update
	if t.templates.Update == "" {
		return 0, nil
	}

	stmt.SQL.WriteString(t.templates.Update)
	for _, field := range t.schema.UpdateFields {
		value, _ := field.ValueOf(rv)
		stmt.Vars = append(stmt.Vars, value)
	}
	for _, field := range t.schema.PrimaryFields {
		value, _ := field.ValueOf(rv)
		stmt.Vars = append(stmt.Vars, value)
	}

	rowsAffected, err := t.db.exec(ctx, stmt)
	if err != nil {
		return 0, t.db.report(ctx, "update", stmt, err)
	}

	if t.db.RefreshOnUpdate {
		t.Invalidate()
	}
	return rowsAffected, nil
}

// DeleteRecord deletes the record with the given key values and clears the
// key cache
func (t *Table[T]) DeleteRecord(ctx context.Context, keys ...interface{}) (int64, error) {
	stmt := t.statement()
	if err := t.checkKeys(keys); err != nil {
		return 0, t.db.report(ctx, "delete", stmt, err)
	}

	stmt.SQL.WriteString(t.templates.Delete)
	stmt.Vars = keys

	rowsAffected, err := t.db.exec(ctx, stmt)
	if err != nil {
		return 0, t.db.report(ctx, "delete", stmt, err)
	}

	t.Invalidate()
	return rowsAffected, nil
}

// validate checks required and size settings of fields on record
func validate(record reflect.Value, fields []*schema.Field) error {
	for _, field := range fields {
		value, _ := field.ValueOf(record)
		if field.Required && missing(value) {
			return fmt.Errorf("%w: %s", ErrMissingRequired, field.Label)
		}

		if field.Size > 0 {
			if s, ok := stringOf(value); ok && utf8.RuneCountInString(s) > field.Size {
				return fmt.Errorf("%w: %s is limited to %d characters", ErrValueTooLong, field.Label, field.Size)
			}
		}
	}
	return nil
}

func missing(value interface{}) bool {
	if valuer, ok := value.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil || v == nil {
			return true
		}
		value = v
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return true
	}

	switch v := rv.Interface().(type) {
	case time.Time:
		return v.IsZero()
	case []byte:
		return len(v) == 0
	}

	if rv.Kind() == reflect.String {
		return strings.TrimSpace(rv.String()) == ""
	}
	return false
}

func stringOf(value interface{}) (string, bool) {
	if valuer, ok := value.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil || v == nil {
			return "", false
		}
		value = v
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
