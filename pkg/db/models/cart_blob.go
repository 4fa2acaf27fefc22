package models

import "time"

// CartBlob stores the serialized cart of one cart session under its storage key.
type CartBlob struct {
	Key       string    `gorm:"column:key;primaryKey;size:191"`
	Payload   []byte    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index"`
}

func (CartBlob) TableName() string { return "cart_blobs" }
