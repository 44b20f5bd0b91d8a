package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/internal/pix"
	"milebot/internal/repository"
	"milebot/internal/service/auth"
	"milebot/internal/service/subscription"
	"milebot/pkg/lock"
	"milebot/pkg/log"
	"milebot/pkg/utils"
)

// Gateway is the PIX gateway surface the service needs.
type Gateway interface {
	CreateCharge(ctx context.Context, amount float64, description, externalRef, payerEmail, payerName, cpf string) (*pix.Charge, error)
	GetPayment(ctx context.Context, paymentID string) (*pix.PaymentInfo, error)
}

// Notifier delivers a plain-text message to a telegram user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Service reconciles gateway webhooks into subscriptions. Webhooks
// replay freely, so every step is guarded: a redis lock serializes
// concurrent deliveries of the same payment and the unique external id
// on the payments table makes completed ones no-ops.
type Service struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	subs     *subscription.Service
	authSvc  *auth.Service
	gateway  Gateway
	redis    *redis.Client
	notifier Notifier

	priceTolerance float64
}

// NewService creates a payment service
func NewService(
	db *gorm.DB,
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	subs *subscription.Service,
	authSvc *auth.Service,
	gateway Gateway,
	redisClient *redis.Client,
	notifier Notifier,
	priceTolerance float64,
) *Service {
	return &Service{
		db:             db,
		payments:       payments,
		plans:          plans,
		subs:           subs,
		authSvc:        authSvc,
		gateway:        gateway,
		redis:          redisClient,
		notifier:       notifier,
		priceTolerance: priceTolerance,
	}
}

// CreatePlanPix opens a PIX charge for a plan. The external reference
// ties the eventual webhook back to the buyer and the plan.
func (s *Service) CreatePlanPix(ctx context.Context, userID int64, planID int64) (*pix.Charge, *model.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, utils.ErrPlanNotFound
	}

	siteUser, err := s.authSvc.LinkedSiteUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if siteUser == nil {
		return nil, nil, utils.ErrUserNotLinked
	}

	charge, err := s.gateway.CreateCharge(ctx,
		plan.Price,
		fmt.Sprintf("Plano %s", plan.Name),
		fmt.Sprintf("%d_%d", userID, plan.ID),
		siteUser.Email,
		siteUser.FullName,
		siteUser.CPF,
	)
	if err != nil {
		return nil, nil, err
	}
	return charge, plan, nil
}

// CreateTestPix opens a small one-off charge for the /pix flow.
func (s *Service) CreateTestPix(ctx context.Context, userID int64, amount float64, cpf string) (*pix.Charge, error) {
	log.WithFields(map[string]interface{}{
		"user_id": userID,
		"cpf":     utils.MaskCPF(cpf),
		"amount":  amount,
	}).Info("Creating test PIX charge")
	return s.gateway.CreateCharge(ctx,
		amount,
		"Cobrança de teste",
		fmt.Sprintf("%d_0", userID),
		fmt.Sprintf("user%d@telegram.local", userID),
		"",
		cpf,
	)
}

// ProcessPaymentEvent handles one webhook delivery for a gateway
// payment id. The caller acknowledges the webhook regardless of the
// outcome here, failures are logged and the gateway's retries or the
// lock's next winner finish the job.
func (s *Service) ProcessPaymentEvent(ctx context.Context, paymentID string) error {
	locker := lock.NewRedisLock(s.redis, "payment:lock:"+paymentID, paymentID, 30*time.Second)
	if err := locker.Lock(ctx); err != nil {
		// Another delivery of the same payment is mid-flight
		log.WithField("payment_id", paymentID).Info("Payment event already being processed")
		return nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			log.WithError(err).Warn("Failed to release payment lock")
		}
	}()

	existing, err := s.payments.GetByExternalID(ctx, paymentID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.WithField("payment_id", paymentID).Info("Payment already reconciled")
		return nil
	}

	info, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if info.Status != model.PaymentStatusApproved {
		log.WithFields(map[string]interface{}{
			"payment_id": paymentID,
			"status":     info.Status,
		}).Info("Ignoring non-approved payment event")
		return nil
	}

	userID, planID := parseReference(info.ExternalReference)
	if userID == 0 {
		log.WithField("payment_id", paymentID).
			Warn("Approved payment carries no usable reference")
		return nil
	}

	plan, err := s.resolvePlan(ctx, planID, info.Amount)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.CreateTx(tx, &model.Payment{
			UserID:     userID,
			ExternalID: paymentID,
			Amount:     info.Amount,
			Status:     info.Status,
			Method:     "pix",
		}); err != nil {
			return err
		}
		if plan != nil {
			if _, err := s.subs.Activate(tx, userID, plan, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyOutcome(ctx, userID, plan)
	return nil
}

// resolvePlan maps a payment onto a plan: explicit id from the
// reference first, then nearest active plan by price. Nil means no
// plan matched and activation falls to support.
func (s *Service) resolvePlan(ctx context.Context, planID int64, amount float64) (*model.Plan, error) {
	if planID > 0 {
		plan, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}
	return s.plans.FindByPrice(ctx, amount, s.priceTolerance)
}

func (s *Service) notifyOutcome(ctx context.Context, userID int64, plan *model.Plan) {
	if s.notifier == nil {
		return
	}
	var msg string
	if plan != nil {
		msg = fmt.Sprintf("Pagamento confirmado! Seu plano %s está ativo. Bom negócio!", plan.Name)
	} else {
		msg = "Pagamento confirmado! Não conseguimos identificar o plano automaticamente, nosso suporte fará a ativação manualmente."
	}
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		log.WithError(err).WithField("user_id", userID).
			Warn("Failed to send payment confirmation")
	}
}

// parseReference splits "<userID>_<planID>". A missing or malformed
// part comes back as zero.
func parseReference(ref string) (userID, planID int64) {
	parts := strings.SplitN(ref, "_", 2)
	if len(parts) > 0 {
		userID, _ = strconv.ParseInt(parts[0], 10, 64)
	}
	if len(parts) > 1 {
		planID, _ = strconv.ParseInt(parts[1], 10, 64)
	}
	return userID, planID
}
