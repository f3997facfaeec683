package models_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops"
	"github.com/openspm/tableops/dialect"
	"github.com/openspm/tableops/internal/models"
	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/migrator"
)

func openDB(t *testing.T, now *time.Time) *tableops.DB {
	t.Helper()

	db, err := tableops.Open(dialect.SQLite{}, filepath.Join(t.TempDir(), "models.db"),
		tableops.WithLogger(logger.Discard),
		tableops.WithNowFunc(func() time.Time { return *now }))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	require.NoError(t, migrator.New(db).AutoMigrate(context.Background(), models.All()...))
	return db
}

func TestAuditTimestamps(t *testing.T) {
	var (
		ctx     = context.Background()
		created = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		now     = created
		db      = openDB(t, &now)
	)

	vendors, err := tableops.NewTable[models.Vendor](db)
	require.NoError(t, err)

	vendor := models.Vendor{Name: "Contoso", Contact: sql.NullString{String: "psirt@contoso.example", Valid: true}}
	_, err = vendors.AddNewRecord(ctx, &vendor)
	require.NoError(t, err)
	assert.True(t, vendor.CreatedOn.Equal(created))
	assert.True(t, vendor.ModifiedOn.Equal(created))

	now = created.Add(48 * time.Hour)
	vendor.ModifiedBy = "jdoe"
	_, err = vendors.UpdateRecord(ctx, &vendor)
	require.NoError(t, err)

	loaded, err := vendors.LoadRecord(ctx, vendor.VendorID)
	require.NoError(t, err)
	assert.True(t, loaded.CreatedOn.Equal(created))
	assert.True(t, loaded.ModifiedOn.Equal(now))
	assert.Equal(t, "jdoe", loaded.ModifiedBy)
	assert.Equal(t, vendor.Contact, loaded.Contact)

	vendor.Contact = sql.NullString{}
	_, err = vendors.UpdateRecord(ctx, &vendor)
	require.NoError(t, err)
	loaded, err = vendors.LoadRecord(ctx, vendor.VendorID)
	require.NoError(t, err)
	assert.False(t, loaded.Contact.Valid)
}

func TestPatchLifecycle(t *testing.T) {
	var (
		ctx = context.Background()
		now = time.Date(2024, 4, 9, 17, 0, 0, 0, time.UTC)
		db  = openDB(t, &now)
	)

	patches, err := tableops.NewTable[models.Patch](db)
	require.NoError(t, err)
	assessments, err := tableops.NewTable[models.Assessment](db)
	require.NoError(t, err)
	installations, err := tableops.NewTable[models.Installation](db)
	require.NoError(t, err)

	_, err = patches.AddNewRecord(ctx, &models.Patch{VendorID: 1, Title: "Cumulative update"})
	assert.ErrorIs(t, err, tableops.ErrMissingRequired)
	assert.Contains(t, err.Error(), "Vendor Reference")

	due := now.AddDate(0, 0, 14)
	patch := models.Patch{VendorID: 1, Reference: "KB5036893", Title: "Cumulative update", Severity: 4, CVSS: 8.8, DueOn: &due}
	_, err = patches.AddNewRecord(ctx, &patch)
	require.NoError(t, err)

	assessment := models.Assessment{PatchID: patch.PatchID, Assessor: "secops", Impact: "High", Applicable: true}
	_, err = assessments.AddNewRecord(ctx, &assessment)
	require.NoError(t, err)
	assert.True(t, assessment.AssessedOn.Equal(now))

	installation := models.Installation{PatchID: patch.PatchID, Host: "web-01", Status: "Pending"}
	_, err = installations.AddNewRecord(ctx, &installation)
	require.NoError(t, err)

	installation.Status = "Installed"
	installation.InstalledOn = &now
	_, err = installations.UpdateRecord(ctx, &installation)
	require.NoError(t, err)

	loaded, err := installations.LoadRecord(ctx, installation.InstallationID)
	require.NoError(t, err)
	require.NotNil(t, loaded.InstalledOn)
	assert.True(t, loaded.InstalledOn.Equal(now))
	assert.Nil(t, loaded.ScheduledOn)

	reloaded, err := patches.LoadRecord(ctx, patch.PatchID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.DueOn)
	assert.True(t, reloaded.DueOn.Equal(due))
	assert.InDelta(t, 8.8, reloaded.CVSS, 0.001)
}

func TestNoticeLogKeys(t *testing.T) {
	var (
		ctx = context.Background()
		now = time.Date(2024, 4, 9, 17, 0, 0, 0, time.UTC)
		db  = openDB(t, &now)
	)

	notices, err := tableops.NewTable[models.NoticeLog](db)
	require.NoError(t, err)
	assert.Equal(t, "NoticeLog", notices.Schema().Table)

	first := models.NoticeLog{PatchID: 1, Recipient: "ops@example.com", Level: 1}
	_, err = notices.AddNewRecord(ctx, &first)
	require.NoError(t, err)
	_, err = uuid.Parse(first.NoticeID)
	assert.NoError(t, err)
	assert.True(t, first.SentOn.Equal(now))

	second := models.NoticeLog{PatchID: 1, Recipient: "ops@example.com", Level: 2}
	_, err = notices.AddNewRecord(ctx, &second)
	require.NoError(t, err)
	assert.NotEqual(t, first.NoticeID, second.NoticeID)

	duplicate := models.NoticeLog{NoticeID: first.NoticeID, PatchID: 1, Recipient: "ops@example.com"}
	_, err = notices.AddNewRecord(ctx, &duplicate)
	assert.ErrorIs(t, err, tableops.ErrDuplicatedKey)

	count, err := notices.QueryRecordCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
