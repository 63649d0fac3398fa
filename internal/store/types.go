package store

import (
	"time"

	"hostel-allocation-backend/internal/model"
)

// BedFilter narrows an available-bed query. OrganizationID is required.
type BedFilter struct {
	OrganizationID string
	HostelID       string
	RoomType       string
	Limit          int
}

// AvailableBed is a bed joined with the room fields used for ordering.
type AvailableBed struct {
	model.Bed
	Floor      int    `json:"floor"`
	RoomNumber string `json:"room_number"`
	RoomType   string `json:"room_type"`
}

// ApplicationFilter narrows an application listing.
type ApplicationFilter struct {
	OrganizationID string
	HostelID       string
	StudentID      string
	Status         model.ApplicationStatus
}

// AllocationFilter narrows an allocation listing.
type AllocationFilter struct {
	OrganizationID string
	HostelID       string
	StudentID      string
	Status         model.AllocationStatus
}

// AllocationChange describes a conditional allocation transition.
// Empty fields are left untouched; the deadline is never written.
type AllocationChange struct {
	Status          model.AllocationStatus
	StudentResponse model.StudentResponse
	RespondedAt     *time.Time
	CancelReason    string
	At              time.Time
}

// OccupancyRow is one (hostel, bed status) count. Status is nil for a
// hostel that has no beds.
type OccupancyRow struct {
	HostelID   string
	HostelName string
	Status     *string
	Count      int64
}
