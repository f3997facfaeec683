package schema_test

import (
	"database/sql"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops/schema"
)

type Installation struct {
	InstallationID uint8 `db:"primaryKey"`
	Host           string
	Installed      bool
	Hours          float64
	InstalledOn    time.Time
	VerifiedOn     *time.Time
	Comment        sql.NullString
}

func TestFieldValueOfAndSet(t *testing.T) {
	s, err := schema.Parse(&Installation{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	var inst Installation
	rv := reflect.ValueOf(&inst)

	set := func(name string, v interface{}) {
		t.Helper()
		require.NoError(t, s.LookUpField(name).Set(rv, v))
	}

	set("InstallationID", int64(7))
	set("Host", []byte("web-01"))
	set("Installed", int64(1))
	set("Hours", "1.5")
	set("InstalledOn", "2024-02-03 04:05:06")
	set("VerifiedOn", time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC))
	set("Comment", "rebooted")

	assert.Equal(t, uint8(7), inst.InstallationID)
	assert.Equal(t, "web-01", inst.Host)
	assert.True(t, inst.Installed)
	assert.Equal(t, 1.5, inst.Hours)
	assert.Equal(t, 2024, inst.InstalledOn.Year())
	assert.Equal(t, 6, inst.InstalledOn.Second())
	require.NotNil(t, inst.VerifiedOn)
	assert.Equal(t, 4, inst.VerifiedOn.Day())
	assert.Equal(t, sql.NullString{String: "rebooted", Valid: true}, inst.Comment)

	v, zero := s.LookUpField("Host").ValueOf(rv)
	assert.Equal(t, "web-01", v)
	assert.False(t, zero)

	set("VerifiedOn", nil)
	v, zero = s.LookUpField("VerifiedOn").ValueOf(rv)
	assert.Nil(t, v.(*time.Time))
	assert.True(t, zero)

	assert.Error(t, s.LookUpField("InstallationID").Set(rv, int64(300)))
	assert.Error(t, s.LookUpField("InstallationID").Set(rv, int64(-1)))
	assert.Error(t, s.LookUpField("Hours").Set(rv, "many"))

	assert.Equal(t, schema.String, s.LookUpField("Comment").DataType)
	assert.Equal(t, schema.Uint, s.LookUpField("InstallationID").DataType)
	assert.Equal(t, schema.Float, s.LookUpField("Hours").DataType)
	assert.Equal(t, schema.Bool, s.LookUpField("Installed").DataType)
}
