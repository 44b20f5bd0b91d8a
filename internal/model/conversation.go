package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// State names the conversation step a user is parked at. The set is
// closed: free text in any state outside this set resets to idle.
type State string

const (
	StateIdle State = "IDLE"

	// Sell ad flow
	StateAskSellMiles   State = "ASK_SELL_MILES"
	StateAskSellProgram State = "ASK_SELL_PROGRAM"
	StateAskSellPrice   State = "ASK_SELL_PRICE"
	StateConfirmSellAd  State = "CONFIRM_SELL_AD"

	// Buy ad flow
	StateAskBuyMiles      State = "ASK_BUY_MILES"
	StateAskBuyProgram    State = "ASK_BUY_PROGRAM"
	StateAskBuyPassengers State = "ASK_BUY_PASSENGERS"
	StateAskBuyUrgent     State = "ASK_BUY_URGENT"
	StateAskBuyPrice      State = "ASK_BUY_PRICE"
	StateConfirmBuyAd     State = "CONFIRM_BUY_AD"

	// Proposal flow. The review state covers every button-only step
	// between picking an ad and confirming the proposal, so a user
	// holding a proposal draft is never reported as idle.
	StateAskProposalQuantity State = "ASK_PROPOSAL_QUANTITY"
	StateAskProposalPrice    State = "ASK_PROPOSAL_PRICE"
	StateProposalReview      State = "PROPOSAL_REVIEW"

	// Rating flow
	StateRatingRecommend State = "RATING_RECOMMEND"
	StateRatingStars     State = "RATING_STARS"
	StateRatingConfirm   State = "RATING_CONFIRM"

	// One-off test charge flow
	StateAskPixCPF State = "ASK_PIX_CPF"

	// Site account login flow
	StateAskLoginEmail    State = "ASK_LOGIN_EMAIL"
	StateAskLoginPassword State = "ASK_LOGIN_PASSWORD"
)

// SellAdDraft accumulates the sell flow answers.
type SellAdDraft struct {
	Quantity  int64   `json:"quantity,omitempty"`
	Airline   string  `json:"airline,omitempty"`
	PricePerK float64 `json:"price_per_k,omitempty"`
}

// BuyAdDraft accumulates the buy flow answers.
type BuyAdDraft struct {
	Quantity   int64   `json:"quantity,omitempty"`
	Airline    string  `json:"airline,omitempty"`
	Passengers int     `json:"passengers,omitempty"`
	Urgent     bool    `json:"urgent,omitempty"`
	PricePerK  float64 `json:"price_per_k,omitempty"`
}

// ProposalDraft accumulates a counter-offer against an ad.
type ProposalDraft struct {
	AdID      int64   `json:"ad_id"`
	Quantity  int64   `json:"quantity,omitempty"`
	PricePerK float64 `json:"price_per_k,omitempty"`
}

// RatingDraft accumulates a counterparty review.
type RatingDraft struct {
	AdID       int64  `json:"ad_id"`
	ProposalID int64  `json:"proposal_id"`
	ToUserID   int64  `json:"to_user_id"`
	TargetRole string `json:"target_role"`
	Recommend  bool   `json:"recommend,omitempty"`
	Stars      int    `json:"stars,omitempty"`
}

// LoginDraft holds the email while the password is awaited.
type LoginDraft struct {
	Email string `json:"email,omitempty"`
}

// PixDraft holds the one-off charge parameters while the CPF is awaited.
type PixDraft struct {
	Amount float64 `json:"amount"`
}

// Scratch is the per-flow working data of a conversation. At most one
// field is non-nil at a time; which one depends on the current state.
type Scratch struct {
	Sell     *SellAdDraft   `json:"sell,omitempty"`
	Buy      *BuyAdDraft    `json:"buy,omitempty"`
	Proposal *ProposalDraft `json:"proposal,omitempty"`
	Rating   *RatingDraft   `json:"rating,omitempty"`
	Login    *LoginDraft    `json:"login,omitempty"`
	Pix      *PixDraft      `json:"pix,omitempty"`
}

// IsEmpty check no flow draft is present
func (s *Scratch) IsEmpty() bool {
	return s == nil ||
		(s.Sell == nil && s.Buy == nil && s.Proposal == nil &&
			s.Rating == nil && s.Login == nil && s.Pix == nil)
}

// Value implement driver.Valuer, serializes the scratch as JSON
func (s Scratch) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implement sql.Scanner
func (s *Scratch) Scan(value interface{}) error {
	if value == nil {
		*s = Scratch{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported scratch column type %T", value)
	}
}

// ConversationState is the single persisted row per user that makes the
// dialogue crash-safe: every transition is an upsert of this row.
type ConversationState struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	State     State     `gorm:"type:varchar(32);not null;default:'IDLE'" json:"state"`
	Scratch   Scratch   `gorm:"type:json" json:"scratch"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (ConversationState) TableName() string {
	return "conversation_states"
}

// IsIdle check the user is outside any flow
func (c *ConversationState) IsIdle() bool {
	return c.State == StateIdle
}
