package model

import (
	"time"
)

// Ad kinds
const (
	AdKindSell = "SELL"
	AdKindBuy  = "BUY"
)

// Ad statuses
const (
	AdStatusActive    = "ACTIVE"
	AdStatusSold      = "SOLD"
	AdStatusCancelled = "CANCELLED"
)

// Ad is a published BUY or SELL offer for airline miles. Price is per
// thousand miles in BRL.
type Ad struct {
	ID            int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OwnerID       int64      `gorm:"not null;index" json:"owner_id"`
	OwnerUsername string     `gorm:"type:varchar(64)" json:"owner_username"`
	Kind          string     `gorm:"type:varchar(8);not null;index" json:"kind"`
	Airline       string     `gorm:"type:varchar(50);not null" json:"airline"`
	Quantity      int64      `gorm:"not null" json:"quantity"`
	PricePerK     float64    `gorm:"type:decimal(10,2);not null" json:"price_per_k"`
	Passengers    *int       `gorm:"type:int" json:"passengers,omitempty"`
	Urgent        bool       `gorm:"not null;default:false" json:"urgent"`
	Status        string     `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	PostChatID    *int64     `json:"post_chat_id,omitempty"`
	PostMessageID *int       `json:"post_message_id,omitempty"`
	SoldAt        *time.Time `gorm:"type:timestamp" json:"sold_at,omitempty"`
	CreatedAt     time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Ad) TableName() string {
	return "ads"
}

// IsActive check ad is still open for proposals
func (a *Ad) IsActive() bool {
	return a.Status == AdStatusActive
}

// IsTerminal check ad reached a final status
func (a *Ad) IsTerminal() bool {
	return a.Status == AdStatusSold || a.Status == AdStatusCancelled
}

// TotalValue returns the full ad value in BRL.
func (a *Ad) TotalValue() float64 {
	return float64(a.Quantity) / 1000 * a.PricePerK
}
