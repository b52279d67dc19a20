package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxUserNameLength = 32
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUser(name string, now time.Time) *User {
	return &User{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
	}
}
