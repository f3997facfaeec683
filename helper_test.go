package tableops_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/dialect"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/migrator"
)

type Patch struct {
	PatchID    uint   `db:"primaryKey;autoIncrement"`
	Title      string `db:"size:40;required;label:Patch Title"`
	Severity   int
	ReleasedOn time.Time
	Notes      *string
}

type PatchProduct struct {
	PatchID   uint `db:"primaryKey"`
	ProductID uint `db:"primaryKey"`
}

type Setting struct {
	Name  string `db:"primaryKey;size:50"`
	Value string `db:"column:SettingValue"`
}

// LogLine has no key, so only count and add work on it
type LogLine struct {
	Message string
	Level   int
}

type Notice struct {
	NoticeID uint `db:"primaryKey;autoIncrement"`
	Subject  string
	SentOn   time.Time
	Revision int
}

func (n *Notice) BeforeAdd(db *tableops.DB) error {
	n.SentOn = db.NowFunc()
	return nil
}

func (n *Notice) BeforeUpdate(*tableops.DB) error {
	if n.Subject == "" {
		return errors.New("subject required")
	}
	n.Revision++
	return nil
}

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

var patchSeeds = []struct {
	title    string
	severity int
}{
	{"Edge 124", 2},
	{"Acrobat DC", 3},
	{"Kernel 6.8", 5},
	{"Chrome 123", 4},
	{"OpenSSL 3.2", 5},
	{"Bash 5.2", 1},
	{"Java 21", 3},
}

func openDB(t *testing.T, opts ...tableops.Option) *tableops.DB {
	t.Helper()

	opts = append([]tableops.Option{
		tableops.WithLogger(logger.Discard),
		tableops.WithNowFunc(func() time.Time { return fixedNow }),
	}, opts...)

	db, err := tableops.Open(dialect.SQLite{}, filepath.Join(t.TempDir(), "openspm.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	require.NoError(t, migrator.New(db).CreateTable(context.Background(),
		&Patch{}, &PatchProduct{}, &Setting{}, &LogLine{}, &Notice{}))
	return db
}

func newTable[T any](t *testing.T, db *tableops.DB) *tableops.Table[T] {
	t.Helper()

	tbl, err := tableops.NewTable[T](db)
	require.NoError(t, err)
	return tbl
}

// seedPatches inserts patchSeeds, assigning keys 1..7 in order
func seedPatches(t *testing.T, db *tableops.DB) {
	t.Helper()

	tbl := newTable[Patch](t, db)
	for idx, seed := range patchSeeds {
		patch := Patch{
			Title:      seed.title,
			Severity:   seed.severity,
			ReleasedOn: fixedNow.AddDate(0, 0, -idx),
		}
		_, err := tbl.AddNewRecord(context.Background(), &patch)
		require.NoError(t, err)
		require.EqualValues(t, idx+1, patch.PatchID)
	}
}

func patchIDs(patches []Patch) []uint {
	ids := make([]uint, 0, len(patches))
	for _, p := range patches {
		ids = append(ids, p.PatchID)
	}
	return ids
}

// allPages concatenates every page of the given size
func allPages(t *testing.T, tbl *tableops.Table[Patch], sortField string, ascending bool, pageSize int, restrictions ...tableops.Restriction) []Patch {
	t.Helper()

	var all []Patch
	for page := 1; ; page++ {
		records, err := tbl.QueryRecords(context.Background(), sortField, ascending, page, pageSize, restrictions...)
		require.NoError(t, err)
		if len(records) == 0 {
			return all
		}
		require.LessOrEqual(t, len(records), pageSize)
		all = append(all, records...)
	}
}
