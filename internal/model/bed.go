package model

import (
	"time"

	"gorm.io/gorm"
)

// BedStatus is the single source of truth for occupancy.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedReserved    BedStatus = "reserved"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
)

// BedType distinguishes regular beds from adapted ones.
type BedType string

const (
	BedTypeNormal  BedType = "normal"
	BedTypeSpecial BedType = "special"
)

// Bed is the atomic allocatable resource. HostelID is denormalized from
// the room so availability queries can filter without a join.
type Bed struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID    string    `gorm:"type:varchar(36);index;not null" json:"room_id"`
	HostelID  string    `gorm:"type:varchar(36);index;not null" json:"hostel_id"`
	Label     string    `gorm:"size:32;not null" json:"label"`
	Type      BedType   `gorm:"type:varchar(16);not null" json:"type"`
	Status    BedStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Version   int       `gorm:"not null" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (b *Bed) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
