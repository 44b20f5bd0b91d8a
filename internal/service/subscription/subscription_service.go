package subscription

import (
	"context"
	"time"

	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/pkg/log"
)

// AccessVerdict is the outcome of the entitlement gate.
type AccessVerdict int

const (
	// Proceed: linked, subscribed, feature granted
	Proceed AccessVerdict = iota
	// NeedsLogin: telegram account not linked to a site account
	NeedsLogin
	// NeedsPlan: linked but no active subscription
	NeedsPlan
	// Denied: subscribed but the plan lacks the feature
	Denied
)

// AccessDecision carries the verdict plus context for the upsell copy.
type AccessDecision struct {
	Verdict  AccessVerdict
	PlanName string
}

// Notifier delivers a plain-text message to a telegram user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Service is the entitlement gate plus the expiry sweep.
type Service struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
	plans repository.PlanRepository
}

// NewService creates a subscription service
func NewService(users repository.UserRepository, subs repository.SubscriptionRepository, plans repository.PlanRepository) *Service {
	return &Service{users: users, subs: subs, plans: plans}
}

// CheckAccess decides whether a user may run a gated operation. The
// check mutates nothing, callers route the user by verdict.
func (s *Service) CheckAccess(ctx context.Context, userID int64, feature string) (*AccessDecision, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsLinked() {
		return &AccessDecision{Verdict: NeedsLogin}, nil
	}

	sub, err := s.subs.GetCurrent(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &AccessDecision{Verdict: NeedsPlan}, nil
	}

	plan := sub.Plan
	if plan == nil {
		plan, err = s.plans.GetByID(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
	}
	if plan == nil || !plan.HasFeature(feature) {
		decision := &AccessDecision{Verdict: Denied}
		if plan != nil {
			decision.PlanName = plan.Name
		}
		return decision, nil
	}

	return &AccessDecision{Verdict: Proceed, PlanName: plan.Name}, nil
}

// Current returns the user's active subscription, nil when none.
func (s *Service) Current(ctx context.Context, userID int64) (*model.Subscription, error) {
	return s.subs.GetCurrent(ctx, userID, time.Now())
}

// ListPlans returns the purchasable plans, cheapest first.
func (s *Service) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return s.plans.ListActive(ctx)
}

// Activate creates a subscription for a paid plan inside the given tx.
func (s *Service) Activate(tx *gorm.DB, userID int64, plan *model.Plan, now time.Time) (*model.Subscription, error) {
	sub := &model.Subscription{
		UserID:   userID,
		PlanID:   plan.ID,
		Status:   model.SubscriptionStatusActive,
		StartsAt: now,
		EndsAt:   now.AddDate(0, 0, plan.DurationDays),
	}
	if err := s.subs.CreateTx(tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SweepExpired flips past-due subscriptions to expired and notifies
// the users. Safe to rerun, the active-status guard makes every flip
// happen once.
func (s *Service) SweepExpired(ctx context.Context, notifier Notifier) (int, error) {
	due, err := s.subs.ListDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range due {
		affected, err := s.subs.Expire(ctx, sub.ID)
		if err != nil {
			log.WithError(err).WithField("subscription_id", sub.ID).
				Error("Failed to expire subscription")
			continue
		}
		if affected == 0 {
			continue
		}
		expired++

		if notifier != nil {
			msg := "Sua assinatura expirou. Use /plans para renovar e continuar negociando."
			if err := notifier.Notify(ctx, sub.UserID, msg); err != nil {
				log.WithError(err).WithField("user_id", sub.UserID).
					Warn("Failed to send expiry notice")
			}
		}
	}
	return expired, nil
}

// RunSweeper blocks, sweeping on every tick until the context ends.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, notifier Notifier) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Subscription sweeper started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("Subscription sweeper stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepExpired(ctx, notifier); err != nil {
				log.WithError(err).Error("Subscription sweep failed")
			} else if n > 0 {
				log.Infof("Expired %d subscriptions", n)
			}
		}
	}
}
