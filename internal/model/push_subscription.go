package model

import "time"

// PushSubscription holds a browser push endpoint registered by a recipient.
type PushSubscription struct {
	Endpoint    string    `gorm:"primaryKey" json:"endpoint"`
	RecipientID string    `gorm:"type:varchar(64);index;not null" json:"recipient_id"`
	P256DH      string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth        string    `gorm:"not null" json:"auth"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
