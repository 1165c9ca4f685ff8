package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a seeded account. The birthdate column is a login credential only and
// is never loaded into this struct.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	AvatarURL *string   `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Author holds the display fields joined onto posts and comments.
type Author struct {
	Username  string  `json:"username" db:"username"`
	AvatarURL *string `json:"avatar_url" db:"avatar_url"`
}

func (u User) Author() Author {
	return Author{Username: u.Username, AvatarURL: u.AvatarURL}
}
