package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milebot/internal/model"
)

// UserRepository telegram user repository interface
type UserRepository interface {
	// Get user by telegram id, nil when unknown
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// Create or refresh the user row from an incoming update
	Upsert(ctx context.Context, user *model.User) error

	// Tie the telegram account to a site account
	LinkSiteAccount(ctx context.Context, userID, siteUserID int64) error

	// Remove the site account linkage
	UnlinkSiteAccount(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "updated_at"}),
	}).Create(user).Error
}

func (r *userRepository) LinkSiteAccount(ctx context.Context, userID, siteUserID int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("site_user_id", siteUserID).Error
}

func (r *userRepository) UnlinkSiteAccount(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("site_user_id", nil).Error
}

// SiteUserRepository site account repository interface
type SiteUserRepository interface {
	// Get account by email, nil when unknown
	GetByEmail(ctx context.Context, email string) (*model.SiteUser, error)

	// Get account by id, nil when unknown
	GetByID(ctx context.Context, id int64) (*model.SiteUser, error)
}

type siteUserRepository struct {
	db *gorm.DB
}

// NewSiteUserRepository creates a site user repository
func NewSiteUserRepository(db *gorm.DB) SiteUserRepository {
	return &siteUserRepository{db: db}
}

func (r *siteUserRepository) GetByEmail(ctx context.Context, email string) (*model.SiteUser, error) {
	var user model.SiteUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *siteUserRepository) GetByID(ctx context.Context, id int64) (*model.SiteUser, error) {
	var user model.SiteUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
