package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	OIDCID       *string   `gorm:"column:oidc_id;uniqueIndex" json:"-"` // OpenID Connect subject
	IsManager    bool      `gorm:"not null;default:false" json:"is_manager"`
	CreatedAt    time.Time `json:"created_at"`
}
