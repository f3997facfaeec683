package main

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/filter"
	"github.com/openspm/tableops/internal/models"
	"github.com/openspm/tableops/schema"
)

// entity runs table operations for one model without knowing its type
type entity interface {
	Schema() *schema.Schema
	Count(ctx context.Context, where string) (int64, error)
	List(ctx context.Context, sortField string, ascending bool, page, pageSize int, where string) (interface{}, error)
	Get(ctx context.Context, keys []string) (interface{}, error)
	Delete(ctx context.Context, keys []string) (int64, error)
}

type runner[T any] struct {
	table *tableops.Table[T]
}

func newRunner[T any](db *tableops.DB) (entity, error) {
	table, err := tableops.NewTable[T](db)
	if err != nil {
		return nil, err
	}
	return runner[T]{table: table}, nil
}

func (r runner[T]) Schema() *schema.Schema {
	return r.table.Schema()
}

func (r runner[T]) restriction(where string) (tableops.Restriction, error) {
	expr, err := filter.ParseQuery(r.table.Schema(), where)
	if err != nil {
		return tableops.Restriction{}, err
	}
	return tableops.Where(expr), nil
}

func (r runner[T]) Count(ctx context.Context, where string) (int64, error) {
	restriction, err := r.restriction(where)
	if err != nil {
		return 0, err
	}
	return r.table.QueryRecordCount(ctx, restriction)
}

func (r runner[T]) List(ctx context.Context, sortField string, ascending bool, page, pageSize int, where string) (interface{}, error) {
	restriction, err := r.restriction(where)
	if err != nil {
		return nil, err
	}
	return r.table.QueryRecords(ctx, sortField, ascending, page, pageSize, restriction)
}

func (r runner[T]) Get(ctx context.Context, keys []string) (interface{}, error) {
	values, err := r.keyValues(keys)
	if err != nil {
		return nil, err
	}
	return r.table.LoadRecord(ctx, values...)
}

func (r runner[T]) Delete(ctx context.Context, keys []string) (int64, error) {
	values, err := r.keyValues(keys)
	if err != nil {
		return 0, err
	}
	return r.table.DeleteRecord(ctx, values...)
}

// keyValues converts command line keys to the types of the key fields
func (r runner[T]) keyValues(keys []string) ([]interface{}, error) {
	s := r.table.Schema()
	if len(keys) != len(s.PrimaryFields) {
		return nil, fmt.Errorf("%w: %s takes %d key values, got %d", tableops.ErrPrimaryKeyRequired, s.Name, len(s.PrimaryFields), len(keys))
	}

	var (
		record = reflect.ValueOf(new(T))
		values = make([]interface{}, len(keys))
	)
	for idx, field := range s.PrimaryFields {
		if err := field.Set(record, keys[idx]); err != nil {
			return nil, fmt.Errorf("key %s: %w", field.Name, err)
		}
		values[idx], _ = field.ValueOf(record)
	}
	return values, nil
}

type registry map[string]func(*tableops.DB) (entity, error)

var entities = registry{
	"vendor":       newRunner[models.Vendor],
	"product":      newRunner[models.Product],
	"patch":        newRunner[models.Patch],
	"patchproduct": newRunner[models.PatchProduct],
	"assessment":   newRunner[models.Assessment],
	"installation": newRunner[models.Installation],
	"noticelog":    newRunner[models.NoticeLog],
}

func (r registry) names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r registry) open(db *tableops.DB, name string) (entity, error) {
	newEntity, ok := r[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q, expected one of %s", name, strings.Join(r.names(), ", "))
	}
	return newEntity(db)
}
