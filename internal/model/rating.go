package model

import (
	"time"
)

// Rating target roles
const (
	RatingRoleBuyer  = "BUYER"
	RatingRoleSeller = "SELLER"
)

// MileHistory directions
const (
	HistoryDirectionBought = "bought"
	HistoryDirectionSold   = "sold"
)

// Rating is one counterparty review for a closed deal. The rating is
// created as a draft during the dialogue and only counts toward
// reputation once Confirmed is set.
type Rating struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AdID       int64     `gorm:"not null;index" json:"ad_id"`
	ProposalID int64     `gorm:"not null;index" json:"proposal_id"`
	FromUserID int64     `gorm:"not null;index" json:"from_user_id"`
	ToUserID   int64     `gorm:"not null;index" json:"to_user_id"`
	TargetRole string    `gorm:"type:varchar(8);not null" json:"target_role"`
	Recommend  bool      `gorm:"not null" json:"recommend"`
	Stars      int       `gorm:"not null" json:"stars"`
	Confirmed  bool      `gorm:"not null;default:false;index" json:"confirmed"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Rating) TableName() string {
	return "ratings"
}

// MileHistory is the traded-miles ledger. One confirmed rating writes
// one "sold" row for the seller and one "bought" row for the buyer.
// The unique key makes replays harmless.
type MileHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProposalID int64     `gorm:"not null;uniqueIndex:uk_ledger_entry" json:"proposal_id"`
	UserID     int64     `gorm:"not null;uniqueIndex:uk_ledger_entry;index" json:"user_id"`
	Direction  string    `gorm:"type:varchar(8);not null;uniqueIndex:uk_ledger_entry" json:"direction"`
	Airline    string    `gorm:"type:varchar(50);not null" json:"airline"`
	Quantity   int64     `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName set name
func (MileHistory) TableName() string {
	return "mile_history"
}
