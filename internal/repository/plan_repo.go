package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milebot/internal/model"
)

// PlanRepository subscription plan repository interface
type PlanRepository interface {
	// List purchasable plans, cheapest first
	ListActive(ctx context.Context) ([]*model.Plan, error)

	// Get plan by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*model.Plan, error)

	// Find the active plan whose price is within tolerance of amount,
	// nil when no plan matches
	FindByPrice(ctx context.Context, amount, tolerance float64) (*model.Plan, error)
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) ListActive(ctx context.Context) ([]*model.Plan, error) {
	var plans []*model.Plan
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) FindByPrice(ctx context.Context, amount, tolerance float64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).
		Where("active = ? AND price BETWEEN ? AND ?", true, amount-tolerance, amount+tolerance).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "ABS(price - ?)", Vars: []interface{}{amount}}}).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// SubscriptionRepository subscription repository interface
type SubscriptionRepository interface {
	// Create subscription inside the given tx
	CreateTx(tx *gorm.DB, sub *model.Subscription) error

	// Current (active, unexpired) subscription of a user, nil when none
	GetCurrent(ctx context.Context, userID int64, now time.Time) (*model.Subscription, error)

	// Active subscriptions whose end date has passed
	ListDue(ctx context.Context, now time.Time) ([]*model.Subscription, error)

	// Flip active to expired, returns rows affected
	Expire(ctx context.Context, id int64) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) CreateTx(tx *gorm.DB, sub *model.Subscription) error {
	return tx.Create(sub).Error
}

func (r *subscriptionRepository) GetCurrent(ctx context.Context, userID int64, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ? AND ends_at > ?", userID, model.SubscriptionStatusActive, now).
		Order("ends_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListDue(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", model.SubscriptionStatusActive, now).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) Expire(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND status = ?", id, model.SubscriptionStatusActive).
		Update("status", model.SubscriptionStatusExpired)
	return res.RowsAffected, res.Error
}

// PaymentRepository reconciled payment repository interface
type PaymentRepository interface {
	// Get payment by gateway id, nil when unseen
	GetByExternalID(ctx context.Context, externalID string) (*model.Payment, error)

	// Create payment inside the given tx
	CreateTx(tx *gorm.DB, payment *model.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) CreateTx(tx *gorm.DB, payment *model.Payment) error {
	return tx.Create(payment).Error
}
