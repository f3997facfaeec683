// Package models holds the openSPM business entities.
package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/openspm/tableops"
)

// Audit is embedded by entities that record who last changed them
type Audit struct {
	CreatedOn  time.Time `db:"label:Created On"`
	ModifiedOn time.Time `db:"label:Modified On"`
	ModifiedBy string    `db:"size:64;label:Modified By"`
}

func (a *Audit) touch(db *tableops.DB, created bool) {
	t := db.NowFunc()
	if created || a.CreatedOn.IsZero() {
		a.CreatedOn = t
	}
	a.ModifiedOn = t
}

// Vendor publishes patches for its products
type Vendor struct {
	VendorID uint   `db:"primaryKey;autoIncrement;label:Vendor #"`
	Name     string `db:"size:100;required"`
	Website  string `db:"size:255"`
	Contact  sql.NullString
	Active   bool `db:"default:1"`
	Audit
}

func (v *Vendor) BeforeAdd(db *tableops.DB) error {
	v.touch(db, true)
	return nil
}

func (v *Vendor) BeforeUpdate(db *tableops.DB) error {
	v.touch(db, false)
	return nil
}

// Product is a piece of vendor software that patches apply to
type Product struct {
	ProductID uint   `db:"primaryKey;autoIncrement;label:Product #"`
	VendorID  uint   `db:"required;label:Vendor #"`
	Name      string `db:"size:100;required"`
	Version   string `db:"size:50"`
	Platform  string `db:"size:50"`
}

// Patch is one vendor release that needs assessing and installing
type Patch struct {
	PatchID     uint       `db:"primaryKey;autoIncrement;label:Patch #"`
	VendorID    uint       `db:"required;label:Vendor #"`
	Reference   string     `db:"size:50;required;label:Vendor Reference"`
	Title       string     `db:"size:200;required"`
	Severity    int        `db:"default:0"`
	CVSS        float64    `db:"precision:4;scale:1;label:CVSS Score"`
	ReleasedOn  time.Time  `db:"label:Released On"`
	DueOn       *time.Time `db:"label:Due On"`
	Description string
	Superseded  bool `db:"default:0"`
	Audit
}

func (p *Patch) BeforeAdd(db *tableops.DB) error {
	p.touch(db, true)
	return nil
}

func (p *Patch) BeforeUpdate(db *tableops.DB) error {
	p.touch(db, false)
	return nil
}

// PatchProduct links a patch to each product it applies to
type PatchProduct struct {
	PatchID   uint `db:"primaryKey;label:Patch #"`
	ProductID uint `db:"primaryKey;label:Product #"`
}

// Assessment records the impact review of a patch
type Assessment struct {
	AssessmentID uint   `db:"primaryKey;autoIncrement;label:Assessment #"`
	PatchID      uint   `db:"required;label:Patch #"`
	Assessor     string `db:"size:64;required"`
	Impact       string `db:"size:20;required;default:'Unknown'"`
	Applicable   bool
	Notes        string    `db:"size:2000"`
	AssessedOn   time.Time `db:"label:Assessed On"`
}

func (a *Assessment) BeforeAdd(db *tableops.DB) error {
	if a.AssessedOn.IsZero() {
		a.AssessedOn = db.NowFunc()
	}
	return nil
}

// Installation tracks rollout of a patch to one host
type Installation struct {
	InstallationID uint       `db:"primaryKey;autoIncrement;label:Installation #"`
	PatchID        uint       `db:"required;label:Patch #"`
	Host           string     `db:"size:255;required"`
	Status         string     `db:"size:20;required;default:'Pending'"`
	ScheduledOn    *time.Time `db:"label:Scheduled On"`
	InstalledOn    *time.Time `db:"label:Installed On"`
	Mitigation     string     `db:"size:2000"`
}

// NoticeLog records each deadline notice mailed, one per patch, recipient and level
type NoticeLog struct {
	NoticeID  string    `db:"primaryKey;size:36;label:Notice"`
	PatchID   uint      `db:"required;label:Patch #"`
	Recipient string    `db:"size:255;required"`
	Level     int       `db:"label:Alarm Level"`
	SentOn    time.Time `db:"label:Sent On"`
}

func (NoticeLog) TableName() string {
	return "NoticeLog"
}

func (n *NoticeLog) BeforeAdd(db *tableops.DB) error {
	if n.NoticeID == "" {
		n.NoticeID = uuid.NewString()
	}
	if n.SentOn.IsZero() {
		n.SentOn = db.NowFunc()
	}
	return nil
}

// All lists every entity in creation order
func All() []interface{} {
	return []interface{}{&Vendor{}, &Product{}, &Patch{}, &PatchProduct{}, &Assessment{}, &Installation{}, &NoticeLog{}}
}
