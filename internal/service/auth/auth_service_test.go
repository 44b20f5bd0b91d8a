package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milebot/internal/model"
	internalutils "milebot/internal/utils"
	"milebot/pkg/utils"
)

type fakeUserRepo struct {
	users map[int64]*model.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) LinkSiteAccount(ctx context.Context, userID, siteUserID int64) error {
	u, ok := r.users[userID]
	if !ok {
		u = &model.User{ID: userID}
		r.users[userID] = u
	}
	u.SiteUserID = &siteUserID
	return nil
}

func (r *fakeUserRepo) UnlinkSiteAccount(ctx context.Context, userID int64) error {
	if u, ok := r.users[userID]; ok {
		u.SiteUserID = nil
	}
	return nil
}

type fakeSiteUserRepo struct {
	byEmail map[string]*model.SiteUser
	byID    map[int64]*model.SiteUser
}

func (r *fakeSiteUserRepo) GetByEmail(ctx context.Context, email string) (*model.SiteUser, error) {
	return r.byEmail[email], nil
}

func (r *fakeSiteUserRepo) GetByID(ctx context.Context, id int64) (*model.SiteUser, error) {
	return r.byID[id], nil
}

func newFixture(t *testing.T) (*Service, *fakeUserRepo, *fakeSiteUserRepo) {
	t.Helper()

	hash, err := utils.HashPassword("segredo123")
	require.NoError(t, err)

	account := &model.SiteUser{
		ID:           10,
		Email:        "ana@example.com",
		PasswordHash: hash,
		FullName:     "Ana Souza",
	}

	users := &fakeUserRepo{users: map[int64]*model.User{}}
	siteUsers := &fakeSiteUserRepo{
		byEmail: map[string]*model.SiteUser{account.Email: account},
		byID:    map[int64]*model.SiteUser{account.ID: account},
	}

	jwtManager := internalutils.NewJWTManager("test-secret", "milebot", time.Hour)
	svc := NewService(users, siteUsers, jwtManager, "https://site.example.com/")
	return svc, users, siteUsers
}

func TestLoginLinksAccount(t *testing.T) {
	svc, users, _ := newFixture(t)
	ctx := context.Background()

	siteUser, err := svc.Login(ctx, 555, "ana@example.com", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, int64(10), siteUser.ID)

	linked := users.users[555]
	require.NotNil(t, linked)
	assert.True(t, linked.IsLinked())
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.Login(context.Background(), 555, "  ANA@example.com ", "segredo123")
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _ := newFixture(t)

	_, err := svc.Login(context.Background(), 555, "ana@example.com", "errada")
	assert.ErrorIs(t, err, utils.ErrLoginFailed)
	assert.Nil(t, users.users[555])
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.Login(context.Background(), 555, "ninguem@example.com", "segredo123")
	assert.ErrorIs(t, err, utils.ErrLoginFailed)
}

func TestLogoutUnlinks(t *testing.T) {
	svc, users, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, 555, "ana@example.com", "segredo123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, 555))
	assert.False(t, users.users[555].IsLinked())
}

func TestLinkedSiteUser(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	got, err := svc.LinkedSiteUser(ctx, 555)
	require.NoError(t, err)
	assert.Nil(t, got, "unlinked user has no site account")

	_, err = svc.Login(ctx, 555, "ana@example.com", "segredo123")
	require.NoError(t, err)

	got, err = svc.LinkedSiteUser(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestSignupURLCarriesValidToken(t *testing.T) {
	svc, _, _ := newFixture(t)

	link, err := svc.SignupURL(555, "ana_milhas")
	require.NoError(t, err)
	assert.Contains(t, link, "https://site.example.com/cadastro?link=")

	jwtManager := internalutils.NewJWTManager("test-secret", "milebot", time.Hour)
	raw := link[len("https://site.example.com/cadastro?link="):]
	claims, err := jwtManager.ValidateLinkToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(555), claims.TelegramID)
	assert.Equal(t, "ana_milhas", claims.Username)
}
