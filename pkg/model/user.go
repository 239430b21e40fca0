package model

import "time"

type User struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	FullName       string    `json:"full_name" bson:"full_name" validate:"required,min=2,max=100"`
	Email          string    `json:"email" bson:"email" validate:"required,email"`
	HashedPassword string    `json:"-" bson:"hashed_password"`
	IsActive       bool      `json:"is_active" bson:"is_active"`
	IsAdmin        bool      `json:"is_admin" bson:"is_admin"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// UserRegistration is the request body for account creation. The plaintext
// password never reaches a repository; the service hashes it first.
type UserRegistration struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
