package tableops_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/clause"
	"github.com/openspm/tableops/dialect"
	"github.com/openspm/tableops/internal/mocks"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

func TestNew(t *testing.T) {
	_, err := tableops.New(nil, &sql.DB{})
	assert.ErrorIs(t, err, tableops.ErrInvalidDB)

	_, err = tableops.New(dialect.SQLite{}, nil)
	assert.ErrorIs(t, err, tableops.ErrInvalidDB)

	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "new.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := tableops.New(dialect.SQLite{}, sqlDB)
	require.NoError(t, err)
	assert.Same(t, logger.Default, db.Logger)
	assert.Equal(t, schema.NamingStrategy{}, db.NamingStrategy)

	got, err := db.DB()
	require.NoError(t, err)
	assert.Same(t, sqlDB, got)

	// the pool belongs to the caller
	require.NoError(t, db.Close())
	assert.NoError(t, sqlDB.Ping())
}

func TestOpenWithTransaction(t *testing.T) {
	var (
		ctx = context.Background()
		db  = openDB(t)
	)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	tx, err := sqlDB.BeginTx(ctx, nil)
	require.NoError(t, err)

	txDB, err := tableops.New(dialect.SQLite{}, tx, tableops.WithLogger(logger.Discard))
	require.NoError(t, err)

	_, err = txDB.DB()
	assert.ErrorIs(t, err, tableops.ErrInvalidDB)

	_, err = newTable[Setting](t, txDB).AddNewRecord(ctx, &Setting{Name: "retention.days", Value: "30"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	count, err := newTable[Setting](t, db).QueryRecordCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSchemaCacheSharing(t *testing.T) {
	first := openDB(t)
	second := openDB(t)

	a, err := first.Parse(&Patch{})
	require.NoError(t, err)
	b, err := second.Parse(&Patch{})
	require.NoError(t, err)
	assert.Same(t, a, b)

	namer := schema.NamingStrategy{SnakeCase: true}
	snake := openDB(t, tableops.WithNamingStrategy(namer))
	c, err := snake.Parse(&Patch{})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, "patches", c.Table)

	store := &sync.Map{}
	d1, err := openDB(t, tableops.WithSchemaCache(store)).Parse(&Patch{})
	require.NoError(t, err)
	d2, err := openDB(t, tableops.WithSchemaCache(store)).Parse(&Patch{})
	require.NoError(t, err)
	assert.Same(t, d1, d2)
	assert.NotSame(t, a, d1)
}

func TestSnakeCaseNaming(t *testing.T) {
	var (
		ctx = context.Background()
		db  = openDB(t, tableops.WithNamingStrategy(schema.NamingStrategy{TablePrefix: "spm_", SnakeCase: true}))
	)
	tbl := newTable[Patch](t, db)
	assert.Equal(t, "spm_patches", tbl.Schema().Table)
	assert.Equal(t, "released_on", tbl.Schema().LookUpField("ReleasedOn").DBName)

	_, err := tbl.AddNewRecord(ctx, &Patch{Title: "Teams 24"})
	require.NoError(t, err)

	// field names resolve to columns in restrictions
	count, err := tbl.QueryRecordCount(ctx, tableops.Where(clause.Eq{Column: "Title", Value: "Teams 24"}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	page, err := tbl.QueryRecords(ctx, "ReleasedOn", false, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestRaw(t *testing.T) {
	r, err := tableops.Raw("Severity > ? AND Title LIKE ?", 3, "K%")
	require.NoError(t, err)
	assert.False(t, r.IsZero())

	_, err = tableops.Raw("Severity > ?")
	assert.ErrorIs(t, err, tableops.ErrPlaceholderMismatch)

	_, err = tableops.Raw("Severity > 3", 1)
	assert.ErrorIs(t, err, tableops.ErrPlaceholderMismatch)

	r, err = tableops.Raw("  ")
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	assert.True(t, tableops.Where().IsZero())
	assert.True(t, tableops.Restriction{}.And(tableops.Restriction{}).IsZero())
}

func TestRawKeepsItsValues(t *testing.T) {
	var (
		ctx  = context.Background()
		db   = openDB(t)
		tbl  = newTable[Patch](t, db)
		vars = []interface{}{5}
	)
	seedPatches(t, db)

	r, err := tableops.Raw("Severity = ?", vars...)
	require.NoError(t, err)
	vars[0] = 1

	count, err := tbl.QueryRecordCount(ctx, r)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRawKeepsPrecedence(t *testing.T) {
	var (
		ctx = context.Background()
		db  = openDB(t)
		tbl = newTable[Patch](t, db)
	)
	seedPatches(t, db)

	for _, sql := range []string{
		"Severity = ?\nOR Severity = ?",
		"Severity = ?\tor\tSeverity = ?",
		"(Severity = ?)OR(Severity = ?)",
	} {
		raw, err := tableops.Raw(sql, 5, 1)
		require.NoError(t, err)
		bash := tableops.Where(clause.Eq{Column: "Title", Value: "Bash 5.2"})

		count, err := tbl.QueryRecordCount(ctx, raw, bash)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count, sql)

		page, err := tbl.QueryRecords(ctx, "", true, 1, 10, bash, raw)
		require.NoError(t, err)
		assert.Equal(t, []uint{6}, patchIDs(page), sql)
	}
}

func TestTraceLogsExplainedSQL(t *testing.T) {
	var (
		ctx = context.Background()
		buf bytes.Buffer
	)
	db := openDB(t, tableops.WithLogger(logger.New(log.New(&buf, "", 0), logger.Config{LogLevel: logger.Info})))
	seedPatches(t, db)
	buf.Reset()

	tbl := newTable[Patch](t, db)
	_, err := tbl.QueryRecordCount(ctx, tableops.Where(clause.Gt{Column: "severity", Value: 2}, clause.Like{Column: "Title", Value: "O%"}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SELECT COUNT(*) FROM `Patch` WHERE (`Severity` > 2 AND `Title` LIKE 'O%')")
	assert.Contains(t, buf.String(), "[rows:1]")

	buf.Reset()
	_, err = tbl.DeleteRecord(ctx, 6)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "DELETE FROM `Patch` WHERE `PatchID` = 6")
}

func TestFailuresReachErrorSink(t *testing.T) {
	var (
		ctx  = context.Background()
		sink = mocks.NewLogger(t)
	)

	sink.On("Trace", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	sink.On("Error", mock.Anything, "%s %s: %v", "add", "Patch", mock.MatchedBy(func(err error) bool {
		return errors.Is(err, tableops.ErrMissingRequired)
	})).Once()
	sink.On("Error", mock.Anything, "%s %s: %v", "query", "Patch", mock.MatchedBy(func(err error) bool {
		return errors.Is(err, tableops.ErrInvalidField)
	})).Once()

	db := openDB(t, tableops.WithLogger(sink))
	tbl := newTable[Patch](t, db)
	_, err := tbl.AddNewRecord(ctx, &Patch{})
	assert.ErrorIs(t, err, tableops.ErrMissingRequired)

	_, err = tbl.QueryRecords(ctx, "Vendor", true, 1, 10)
	assert.ErrorIs(t, err, tableops.ErrInvalidField)

	// a missing record is an outcome, not a failure
	_, err = tbl.LoadRecord(ctx, 1)
	assert.ErrorIs(t, err, tableops.ErrRecordNotFound)
}

func TestPreparedStatements(t *testing.T) {
	var (
		ctx = context.Background()
		db  = openDB(t, tableops.WithPrepareStmt(16, 0))
		tbl = newTable[Patch](t, db)
	)
	seedPatches(t, db)

	prepared, ok := db.ConnPool.(*tableops.PreparedStmtDB)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		page, err := tbl.QueryRecords(ctx, "Title", true, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint{2, 6}, patchIDs(page))
		tbl.Invalidate()
	}

	templates := tbl.Schema().Templates(db.Dialector)
	assert.Contains(t, prepared.Stmts.Keys(), templates.Insert)
	assert.Contains(t, prepared.Stmts.Keys(), templates.SelectByKey)

	_, err := tbl.AddNewRecord(ctx, &Patch{Title: "Outlook 2019"})
	require.NoError(t, err)

	_, err = tbl.QueryRecordCount(ctx, tableops.Where(clause.Expr{SQL: "NOT A COLUMN"}))
	assert.Error(t, err)

	require.NoError(t, prepared.Close())
	assert.Nil(t, prepared.Stmts)

	// a closed statement cache stops queries instead of running them unprepared
	_, err = tbl.QueryRecordCount(ctx)
	assert.ErrorIs(t, err, tableops.ErrInvalidDB)
}

func TestConcurrentReaders(t *testing.T) {
	var (
		ctx = context.Background()
		db  = openDB(t)
		wg  sync.WaitGroup
	)
	seedPatches(t, db)

	counts := make([]int, 8)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := tableops.NewTable[Patch](db)
			if err != nil {
				return
			}
			page, err := tbl.QueryRecords(ctx, "Severity", i%2 == 0, 1, 7)
			if err == nil {
				counts[i] = len(page)
			}
		}(i)
	}
	wg.Wait()

	for _, count := range counts {
		assert.Equal(t, 7, count)
	}
}
