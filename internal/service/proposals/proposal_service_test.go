package proposals

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

type fakeProposalRepo struct {
	proposals  map[int64]*model.Proposal
	decideRows int64
	decided    []string
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[int64]*model.Proposal)}
}

func (r *fakeProposalRepo) Create(ctx context.Context, p *model.Proposal) error {
	r.proposals[p.ID] = p
	return nil
}

func (r *fakeProposalRepo) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	return r.proposals[id], nil
}

func (r *fakeProposalRepo) PendingByAd(ctx context.Context, adID int64) ([]*model.Proposal, error) {
	var out []*model.Proposal
	for _, p := range r.proposals {
		if p.AdID == adID && p.IsPending() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) DecideTx(tx *gorm.DB, id int64, status string) (int64, error) {
	r.decided = append(r.decided, status)
	return r.decideRows, nil
}

type fakeAdRepo struct {
	ads map[int64]*model.Ad
}

func (r *fakeAdRepo) Create(ctx context.Context, ad *model.Ad) error { return nil }
func (r *fakeAdRepo) GetByID(ctx context.Context, id int64) (*model.Ad, error) {
	return r.ads[id], nil
}
func (r *fakeAdRepo) RecordPublication(ctx context.Context, id, chatID int64, messageID int) error {
	return nil
}
func (r *fakeAdRepo) MarkSold(ctx context.Context, id int64) (int64, error) { return 1, nil }
func (r *fakeAdRepo) Cancel(ctx context.Context, id int64) (int64, error)   { return 1, nil }
func (r *fakeAdRepo) ListActiveByOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error) {
	return nil, nil
}
func (r *fakeAdRepo) AcceptedAdIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	return nil, nil
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *fakeProposalRepo, *fakeAdRepo) {
	ids, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)

	proposals := newFakeProposalRepo()
	ads := &fakeAdRepo{ads: make(map[int64]*model.Ad)}
	return NewService(db, proposals, ads, ids), proposals, ads
}

func TestCreate_SelfProposalRejected(t *testing.T) {
	db, _ := setupMockDB(t)
	svc, _, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}

	_, err := svc.Create(context.Background(), 42, 7, "owner", 1000, 20)
	assert.ErrorIs(t, err, utils.ErrSelfProposal)
}

func TestCreate_InactiveAd(t *testing.T) {
	db, _ := setupMockDB(t)
	svc, _, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusSold}

	_, err := svc.Create(context.Background(), 42, 8, "buyer", 1000, 20)
	assert.ErrorIs(t, err, utils.ErrAdNotActive)
}

func TestCreate_AlwaysNewPendingRow(t *testing.T) {
	db, _ := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}

	p1, err := svc.Create(context.Background(), 42, 8, "buyer", 1000, 20)
	require.NoError(t, err)
	p2, err := svc.Create(context.Background(), 42, 8, "buyer", 2000, 19)
	require.NoError(t, err)

	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Len(t, proposals.proposals, 2)
	assert.Equal(t, model.ProposalStatusPending, p2.Status)
}

func TestAccept_NotOwner(t *testing.T) {
	db, _ := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}
	proposals.proposals[100] = &model.Proposal{ID: 100, AdID: 42, FromUserID: 8, Status: model.ProposalStatusPending}

	_, _, err := svc.Accept(context.Background(), 100, 999)
	assert.ErrorIs(t, err, utils.ErrAdNotOwned)
	assert.Empty(t, proposals.decided)
}

func TestAccept_AlreadyProcessed(t *testing.T) {
	db, mock := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}
	proposals.proposals[100] = &model.Proposal{ID: 100, AdID: 42, FromUserID: 8, Status: model.ProposalStatusPending}
	proposals.decideRows = 0

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.Accept(context.Background(), 100, 7)
	assert.ErrorIs(t, err, utils.ErrAlreadyProcessed)
}

func TestAccept_FlipsProposalAndAd(t *testing.T) {
	db, mock := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}
	proposals.proposals[100] = &model.Proposal{ID: 100, AdID: 42, FromUserID: 8, Status: model.ProposalStatusPending}
	proposals.decideRows = 1

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `ads` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	proposal, ad, err := svc.Accept(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusAccepted, proposal.Status)
	assert.Equal(t, model.AdStatusSold, ad.Status)
}

func TestAccept_AdFlippedConcurrently(t *testing.T) {
	db, mock := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}
	proposals.proposals[100] = &model.Proposal{ID: 100, AdID: 42, FromUserID: 8, Status: model.ProposalStatusPending}
	proposals.decideRows = 1

	// Ad update matches nothing, the whole transaction rolls back
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `ads` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := svc.Accept(context.Background(), 100, 7)
	assert.ErrorIs(t, err, utils.ErrAdNotActive)
}

func TestReject_NoAdSideEffect(t *testing.T) {
	db, mock := setupMockDB(t)
	svc, proposals, ads := newTestService(t, db)
	ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Status: model.AdStatusActive}
	proposals.proposals[100] = &model.Proposal{ID: 100, AdID: 42, FromUserID: 8, Status: model.ProposalStatusPending}
	proposals.decideRows = 1

	mock.ExpectBegin()
	mock.ExpectCommit()

	proposal, err := svc.Reject(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusRejected, proposal.Status)
	assert.Equal(t, []string{model.ProposalStatusRejected}, proposals.decided)
	// No UPDATE on ads was expected or issued
	assert.NoError(t, mock.ExpectationsWereMet())
}
