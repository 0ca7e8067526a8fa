// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"size:50;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	FullName     string     `json:"full_name,omitempty" gorm:"size:255"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);not null"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	ArtistBio    string     `json:"artist_bio,omitempty" gorm:"type:text"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
