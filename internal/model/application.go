package model

import (
	"time"

	"gorm.io/gorm"
)

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	ApplicationSubmitted  ApplicationStatus = "submitted"
	ApplicationVerified   ApplicationStatus = "verified"
	ApplicationAccepted   ApplicationStatus = "accepted"
	ApplicationRejected   ApplicationStatus = "rejected"
	ApplicationWaitlisted ApplicationStatus = "waitlisted"
)

// Application is a student's request for a bed in a hostel for one
// academic year. It is mutated only by staff actions.
type Application struct {
	ID                string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrganizationID    string            `gorm:"type:varchar(64);index;not null" json:"organization_id"`
	StudentID         string            `gorm:"type:varchar(64);index;not null" json:"student_id"`
	HostelID          string            `gorm:"type:varchar(36);index;not null" json:"hostel_id"`
	PreferredRoomType string            `gorm:"size:32" json:"preferred_room_type,omitempty"`
	AcademicYear      string            `gorm:"size:16;not null" json:"academic_year"`
	Status            ApplicationStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Remarks           string            `gorm:"size:500" json:"remarks,omitempty"`
	VerifiedBy        *string           `gorm:"type:varchar(64)" json:"verified_by,omitempty"`
	VerifiedAt        *time.Time        `json:"verified_at,omitempty"`
	DecidedBy         *string           `gorm:"type:varchar(64)" json:"decided_by,omitempty"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
	AppliedAt         time.Time         `gorm:"not null" json:"applied_at"`
	Version           int               `gorm:"not null" json:"version"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
