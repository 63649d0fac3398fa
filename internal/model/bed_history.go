package model

import (
	"time"

	"gorm.io/gorm"
)

// BedAction is the kind of bed-state change recorded in the ledger.
type BedAction string

const (
	BedActionAssigned    BedAction = "assigned"
	BedActionCancelled   BedAction = "cancelled"
	BedActionVacated     BedAction = "vacated"
	BedActionMaintenance BedAction = "maintenance"
)

// SystemActor is recorded as performer for timer-driven transitions.
const SystemActor = "system"

// BedHistoryRecord is one append-only ledger row. Rows are never updated
// or deleted.
type BedHistoryRecord struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BedID        string    `gorm:"type:varchar(36);not null;index" json:"bed_id"`
	StudentID    *string   `gorm:"type:varchar(64)" json:"student_id,omitempty"`
	AllocationID *string   `gorm:"type:varchar(36);index" json:"allocation_id,omitempty"`
	Action       BedAction `gorm:"type:varchar(16);not null" json:"action"`
	StartDate    time.Time `gorm:"not null" json:"start_date"`
	Notes        string    `gorm:"size:255" json:"notes,omitempty"`
	PerformedBy  string    `gorm:"type:varchar(64);not null" json:"performed_by"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (BedHistoryRecord) TableName() string { return "bed_history" }

func (r *BedHistoryRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
