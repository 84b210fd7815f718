package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128,strongpassword"`
	FirstName string `json:"firstName" binding:"required,min=1,max=100,namechars"`
	LastName  string `json:"lastName" binding:"required,min=1,max=100,namechars"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// Pointer fields so an omitted field is left untouched.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100,namechars"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100,namechars"`
}

func (r UpdateProfileRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil
}
