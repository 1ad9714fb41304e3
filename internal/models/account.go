package models

import (
	"time"
)

// Account is a registered user. It is created once at registration and never mutated.
type Account struct {
	ID        int64     `bson:"_id" json:"id"`
	Username  string    `bson:"username" json:"username"`
	Email     string    `bson:"email" json:"email"`
	Password  string    `bson:"password_hash" json:"-"` // Don't return the hash in JSON
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
