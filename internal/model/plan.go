package model

import (
	"encoding/json"
	"time"
)

// Plan features gate bot operations by subscription tier.
const (
	FeatureBuy  = "BUY"
	FeatureSell = "SELL"
)

// Subscription statuses
const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

// Payment statuses
const (
	PaymentStatusApproved = "approved"
	PaymentStatusPending  = "pending"
	PaymentStatusRejected = "rejected"
)

// Plan is a purchasable subscription tier.
type Plan struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(64);not null" json:"name"`
	Price        float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	Features     string    `gorm:"type:varchar(255);not null;default:'[]'" json:"features"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Plan) TableName() string {
	return "plans"
}

// FeatureList decodes the JSON feature column.
func (p *Plan) FeatureList() []string {
	var features []string
	if err := json.Unmarshal([]byte(p.Features), &features); err != nil {
		return nil
	}
	return features
}

// HasFeature check plan grants a feature
func (p *Plan) HasFeature(feature string) bool {
	for _, f := range p.FeatureList() {
		if f == feature {
			return true
		}
	}
	return false
}

// Subscription ties a telegram user to a plan for a period.
type Subscription struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	PlanID    int64     `gorm:"not null;index" json:"plan_id"`
	Status    string    `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	StartsAt  time.Time `gorm:"type:timestamp;not null" json:"starts_at"`
	EndsAt    time.Time `gorm:"type:timestamp;not null;index" json:"ends_at"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName set name
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsCurrent check subscription is active and not past its end date
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.Before(s.EndsAt)
}

// Payment records one reconciled gateway charge. ExternalID is the
// gateway payment id and is unique, which is what makes webhook
// replays idempotent.
type Payment struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	ExternalID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`
	Amount     float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status     string    `gorm:"type:varchar(16);not null" json:"status"`
	Method     string    `gorm:"type:varchar(16);not null;default:'pix'" json:"method"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (Payment) TableName() string {
	return "payments"
}
