package model

import (
	"time"
)

// Proposal statuses
const (
	ProposalStatusPending  = "PENDING"
	ProposalStatusAccepted = "ACCEPTED"
	ProposalStatusRejected = "REJECTED"
)

// Proposal is an offer against an ad: a quantity of miles at a unit
// price that may differ from the advertised one.
type Proposal struct {
	ID           int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AdID         int64      `gorm:"not null;index" json:"ad_id"`
	FromUserID   int64      `gorm:"not null;index" json:"from_user_id"`
	FromUsername string     `gorm:"type:varchar(64)" json:"from_username"`
	Quantity     int64      `gorm:"not null" json:"quantity"`
	PricePerK    float64    `gorm:"type:decimal(10,2);not null" json:"price_per_k"`
	Status       string     `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	DecidedAt    *time.Time `gorm:"type:timestamp" json:"decided_at,omitempty"`
	CreatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	Ad *Ad `gorm:"foreignKey:AdID" json:"ad,omitempty"`
}

// TableName set name
func (Proposal) TableName() string {
	return "proposals"
}

// IsPending check proposal awaits a decision
func (p *Proposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

// TotalValue returns the full proposal value in BRL.
func (p *Proposal) TotalValue() float64 {
	return float64(p.Quantity) / 1000 * p.PricePerK
}
