package model

import (
	"time"
)

// User is a telegram user known to the bot. The primary key is the
// telegram user id, not a generated one.
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username   string    `gorm:"type:varchar(64);index" json:"username"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name"`
	SiteUserID *int64    `gorm:"index" json:"site_user_id,omitempty"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	SiteUser *SiteUser `gorm:"foreignKey:SiteUserID" json:"site_user,omitempty"`
}

// TableName set name
func (User) TableName() string {
	return "users"
}

// IsLinked reports whether the telegram account is tied to a site account.
func (u *User) IsLinked() bool {
	return u.SiteUserID != nil && *u.SiteUserID > 0
}

// DisplayName returns the best available name for rendering in messages.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "usuário"
}

// SiteUser is an account on the companion web site. Subscriptions and
// payments hang off the telegram user, the site account supplies payer
// identity and the login credentials.
type SiteUser struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string    `gorm:"type:varchar(255)" json:"full_name"`
	CPF          string    `gorm:"type:varchar(11)" json:"cpf"`
	CreatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (SiteUser) TableName() string {
	return "site_users"
}
