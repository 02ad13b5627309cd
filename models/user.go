package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User is the actor identity stamped onto repaired payment records. The
// reconciler receives it explicitly; nothing in the engine goes hunting for
// "whichever superuser exists first".
type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FullName    string    `gorm:"size:255" json:"full_name"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetUserByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	err := db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user not found: %s", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
