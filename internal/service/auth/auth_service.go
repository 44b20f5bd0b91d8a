package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"milebot/internal/model"
	"milebot/internal/repository"
	internalutils "milebot/internal/utils"
	"milebot/pkg/log"
	"milebot/pkg/utils"
)

// Service links telegram accounts to site accounts. Subscriptions are
// bought on the site, the bot only needs the linkage to know who paid.
type Service struct {
	users     repository.UserRepository
	siteUsers repository.SiteUserRepository
	jwt       *internalutils.JWTManager
	siteURL   string
}

// NewService creates an auth service
func NewService(users repository.UserRepository, siteUsers repository.SiteUserRepository, jwt *internalutils.JWTManager, siteURL string) *Service {
	return &Service{
		users:     users,
		siteUsers: siteUsers,
		jwt:       jwt,
		siteURL:   strings.TrimRight(siteURL, "/"),
	}
}

// Login verifies site credentials and links the telegram account to
// the site account. Wrong email and wrong password are reported the
// same way.
func (s *Service) Login(ctx context.Context, userID int64, email, password string) (*model.SiteUser, error) {
	siteUser, err := s.siteUsers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if siteUser == nil || !utils.VerifyPassword(password, siteUser.PasswordHash) {
		log.WithFields(map[string]interface{}{
			"user_id": userID,
			"email":   utils.MaskEmail(email),
		}).Info("Site login rejected")
		return nil, utils.ErrLoginFailed
	}

	if err := s.users.LinkSiteAccount(ctx, userID, siteUser.ID); err != nil {
		return nil, err
	}
	return siteUser, nil
}

// Logout drops the site account linkage.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.users.UnlinkSiteAccount(ctx, userID)
}

// LinkedSiteUser returns the site account tied to the telegram user,
// nil when unlinked.
func (s *Service) LinkedSiteUser(ctx context.Context, userID int64) (*model.SiteUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsLinked() {
		return nil, nil
	}
	return s.siteUsers.GetByID(ctx, *user.SiteUserID)
}

// SignupURL builds a site signup link carrying a signed token so the
// new web account arrives pre-linked to the telegram user.
func (s *Service) SignupURL(userID int64, username string) (string, error) {
	token, err := s.jwt.GenerateLinkToken(userID, username)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/cadastro?link=%s", s.siteURL, url.QueryEscape(token)), nil
}
