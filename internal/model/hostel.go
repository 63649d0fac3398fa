package model

import (
	"time"

	"gorm.io/gorm"
)

// HostelType describes who a hostel houses.
type HostelType string

const (
	HostelTypeMale   HostelType = "male"
	HostelTypeFemale HostelType = "female"
	HostelTypeMixed  HostelType = "mixed"
)

// Hostel represents a residential building owned by an organization.
// DeclaredCapacity is advisory; real capacity is the number of beds.
type Hostel struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrganizationID   string     `gorm:"type:varchar(64);index;not null" json:"organization_id"`
	Name             string     `gorm:"size:128;not null" json:"name"`
	Type             HostelType `gorm:"type:varchar(16);not null" json:"type"`
	DeclaredCapacity int        `gorm:"not null" json:"declared_capacity"`
	Active           bool       `gorm:"not null" json:"active"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Rooms []Room `gorm:"foreignKey:HostelID" json:"rooms,omitempty"`
}

func (h *Hostel) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// Room belongs to a hostel and owns exactly Capacity beds.
type Room struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	HostelID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_rooms_hostel_number" json:"hostel_id"`
	Block      string    `gorm:"size:64" json:"block,omitempty"`
	Floor      int       `gorm:"not null" json:"floor"`
	RoomNumber string    `gorm:"size:32;not null;uniqueIndex:idx_rooms_hostel_number" json:"room_number"`
	RoomType   string    `gorm:"size:32;not null" json:"room_type"`
	Capacity   int       `gorm:"not null" json:"capacity"`
	Active     bool      `gorm:"not null" json:"active"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`

	// Associations
	Beds []Bed `gorm:"foreignKey:RoomID" json:"beds,omitempty"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
