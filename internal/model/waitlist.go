package model

import (
	"time"

	"gorm.io/gorm"
)

// Waitlist removal reasons.
const (
	RemovalAllocatedBed = "allocated_bed"
	RemovalWithdrawn    = "withdrawn"
	RemovalExpired      = "expired"
	RemovalRejected     = "rejected"
)

// WaitlistEntry queues an application for a bed in one hostel. An entry
// is open while RemovedAt is nil; at most one open entry may exist per
// application and hostel.
type WaitlistEntry struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ApplicationID string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_waitlist_open,where:removed_at IS NULL" json:"application_id"`
	HostelID      string     `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_waitlist_open" json:"hostel_id"`
	PriorityScore int        `gorm:"not null" json:"priority_score"`
	AddedAt       time.Time  `gorm:"not null" json:"added_at"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	RemovalReason *string    `gorm:"size:32" json:"removal_reason,omitempty"`
}

func (w *WaitlistEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Open reports whether the entry is still waiting.
func (w *WaitlistEntry) Open() bool {
	return w.RemovedAt == nil
}
