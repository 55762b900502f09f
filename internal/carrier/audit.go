package carrier

import (
	"time"

	"gorm.io/gorm"
)

// AuditRecord is a single administrative mutation against a carrier record:
// an approval flip, a verification toggle, or a catalog upload/remove.
// Persisted so carrier disputes ("why did my rate change") have a trail,
// independent of the UTSF file's own `updates[]` log.
type AuditRecord struct {
	ID         uint      `gorm:"primaryKey"`
	CarrierID  string    `gorm:"index;size:128"`
	Action     string    `gorm:"size:64"`
	ActorID    string    `gorm:"size:128"`
	Reason     string
	Snapshot   string `gorm:"type:jsonb"`
	OccurredAt time.Time
}

// TableName pins the table name so it doesn't depend on gorm's pluralizer.
func (AuditRecord) TableName() string { return "carrier_audit_log" }

// AuditStore persists AuditRecords to Postgres.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore wraps an already-migrated *gorm.DB.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends an audit entry. Audit writes never block the quoting hot
// path; callers invoke this from the admin mutation path only.
func (s *AuditStore) Record(rec AuditRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now()
	}
	return s.db.Create(&rec).Error
}

// History returns the most recent audit entries for a carrier, newest first.
func (s *AuditStore) History(carrierID string, limit int) ([]AuditRecord, error) {
	var out []AuditRecord
	err := s.db.Where("carrier_id = ?", carrierID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
