package model

import (
	"time"

	"gorm.io/gorm"
)

// AllocationStatus is the state of a bed offer.
type AllocationStatus string

const (
	AllocationPending   AllocationStatus = "pending_acceptance"
	AllocationActive    AllocationStatus = "active"
	AllocationCancelled AllocationStatus = "cancelled"
)

// StudentResponse records how the student answered an offer.
type StudentResponse string

const (
	ResponseNone     StudentResponse = "none"
	ResponseAccepted StudentResponse = "accepted"
	ResponseRejected StudentResponse = "rejected"
)

// Cancellation reasons.
const (
	CancelRejected = "rejected"
	CancelExpired  = "expired"
)

// Allocation offers a bed to an accepted application. AcceptanceDeadline
// is set once at creation and never updated. The partial unique indexes
// keep at most one non-cancelled allocation per bed and per application.
type Allocation struct {
	ID                 string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrganizationID     string           `gorm:"type:varchar(64);index;not null" json:"organization_id"`
	ApplicationID      string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_allocations_open_application,where:status <> 'cancelled'" json:"application_id"`
	StudentID          string           `gorm:"type:varchar(64);index;not null" json:"student_id"`
	BedID              string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_allocations_open_bed,where:status <> 'cancelled'" json:"bed_id"`
	HostelID           string           `gorm:"type:varchar(36);index;not null" json:"hostel_id"`
	AcademicYear       string           `gorm:"size:16;not null" json:"academic_year"`
	Status             AllocationStatus `gorm:"type:varchar(24);index;not null" json:"status"`
	AcceptanceDeadline time.Time        `gorm:"not null;index" json:"acceptance_deadline"`
	StudentResponse    StudentResponse  `gorm:"type:varchar(16);not null" json:"student_response"`
	RespondedAt        *time.Time       `json:"responded_at,omitempty"`
	CancelReason       string           `gorm:"size:32" json:"cancel_reason,omitempty"`
	ReminderSentAt     *time.Time       `json:"reminder_sent_at,omitempty"`
	CreatedBy          string           `gorm:"type:varchar(64);not null" json:"created_by"`
	CreatedAt          time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null" json:"updated_at"`
}

func (a *Allocation) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Open reports whether the allocation still holds its bed.
func (a *Allocation) Open() bool {
	return a.Status == AllocationPending || a.Status == AllocationActive
}
