package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"milebot/internal/model"
)

type fakeUserRepo struct {
	users map[int64]*model.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.users[id], nil
}
func (r *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error { return nil }
func (r *fakeUserRepo) LinkSiteAccount(ctx context.Context, userID, siteUserID int64) error {
	return nil
}
func (r *fakeUserRepo) UnlinkSiteAccount(ctx context.Context, userID int64) error { return nil }

type fakeSubRepo struct {
	current *model.Subscription
	due     []*model.Subscription
	expired map[int64]bool
}

func (r *fakeSubRepo) CreateTx(tx *gorm.DB, sub *model.Subscription) error { return nil }
func (r *fakeSubRepo) GetCurrent(ctx context.Context, userID int64, now time.Time) (*model.Subscription, error) {
	return r.current, nil
}
func (r *fakeSubRepo) ListDue(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	return r.due, nil
}
func (r *fakeSubRepo) Expire(ctx context.Context, id int64) (int64, error) {
	if r.expired[id] {
		return 0, nil
	}
	r.expired[id] = true
	return 1, nil
}

type fakePlanRepo struct {
	plans map[int64]*model.Plan
}

func (r *fakePlanRepo) ListActive(ctx context.Context) ([]*model.Plan, error) { return nil, nil }
func (r *fakePlanRepo) GetByID(ctx context.Context, id int64) (*model.Plan, error) {
	return r.plans[id], nil
}
func (r *fakePlanRepo) FindByPrice(ctx context.Context, amount, tolerance float64) (*model.Plan, error) {
	return nil, nil
}

type recordingNotifier struct {
	sent map[int64][]string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func linkedUser(id int64) *model.User {
	siteID := int64(500)
	return &model.User{ID: id, SiteUserID: &siteID}
}

func TestCheckAccess_NeedsLogin(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*model.User{
		1: {ID: 1}, // known but unlinked
	}}
	svc := NewService(users, &fakeSubRepo{}, &fakePlanRepo{})

	for _, id := range []int64{1, 2} {
		decision, err := svc.CheckAccess(context.Background(), id, model.FeatureSell)
		require.NoError(t, err)
		assert.Equal(t, NeedsLogin, decision.Verdict)
	}
}

func TestCheckAccess_NeedsPlan(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*model.User{1: linkedUser(1)}}
	svc := NewService(users, &fakeSubRepo{}, &fakePlanRepo{})

	decision, err := svc.CheckAccess(context.Background(), 1, model.FeatureSell)
	require.NoError(t, err)
	assert.Equal(t, NeedsPlan, decision.Verdict)
}

func TestCheckAccess_PlanLacksFeature(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*model.User{1: linkedUser(1)}}
	buyerPlan := &model.Plan{ID: 10, Name: "Comprador", Features: `["BUY"]`}
	subs := &fakeSubRepo{current: &model.Subscription{UserID: 1, PlanID: 10, Plan: buyerPlan}}
	svc := NewService(users, subs, &fakePlanRepo{})

	decision, err := svc.CheckAccess(context.Background(), 1, model.FeatureSell)
	require.NoError(t, err)
	assert.Equal(t, Denied, decision.Verdict)
	assert.Equal(t, "Comprador", decision.PlanName)
}

func TestCheckAccess_Proceed(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*model.User{1: linkedUser(1)}}
	fullPlan := &model.Plan{ID: 12, Name: "Completo", Features: `["BUY","SELL"]`}
	subs := &fakeSubRepo{current: &model.Subscription{UserID: 1, PlanID: 12, Plan: fullPlan}}
	svc := NewService(users, subs, &fakePlanRepo{})

	for _, feature := range []string{model.FeatureBuy, model.FeatureSell} {
		decision, err := svc.CheckAccess(context.Background(), 1, feature)
		require.NoError(t, err)
		assert.Equal(t, Proceed, decision.Verdict, feature)
	}
}

func TestCheckAccess_LoadsPlanWhenNotPreloaded(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*model.User{1: linkedUser(1)}}
	subs := &fakeSubRepo{current: &model.Subscription{UserID: 1, PlanID: 11}}
	plans := &fakePlanRepo{plans: map[int64]*model.Plan{
		11: {ID: 11, Name: "Vendedor", Features: `["SELL"]`},
	}}
	svc := NewService(users, subs, plans)

	decision, err := svc.CheckAccess(context.Background(), 1, model.FeatureSell)
	require.NoError(t, err)
	assert.Equal(t, Proceed, decision.Verdict)
	assert.Equal(t, "Vendedor", decision.PlanName)
}

func TestSweepExpired_NotifiesOncePerFlip(t *testing.T) {
	subs := &fakeSubRepo{
		due: []*model.Subscription{
			{ID: 1, UserID: 100},
			{ID: 2, UserID: 200},
		},
		expired: make(map[int64]bool),
	}
	svc := NewService(&fakeUserRepo{}, subs, &fakePlanRepo{})
	notifier := &recordingNotifier{}

	n, err := svc.SweepExpired(context.Background(), notifier)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, notifier.sent[100], 1)
	assert.Len(t, notifier.sent[200], 1)

	// Rerun against the same due list, guards block every flip
	n, err = svc.SweepExpired(context.Background(), notifier)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, notifier.sent[100], 1)
}

func TestActivate_EndDateFromPlanDuration(t *testing.T) {
	svc := NewService(&fakeUserRepo{}, &fakeSubRepo{}, &fakePlanRepo{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	plan := &model.Plan{ID: 10, DurationDays: 30}

	sub, err := svc.Activate(nil, 1, plan, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.EndsAt)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
}
