package models

import "time"

// User is a registered account.
type User struct {
	ID              int64     `json:"id" db:"id"`
	Username        string    `json:"username" db:"username"`
	PasswordHash    []byte    `json:"-" db:"password_hash"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Address         string    `json:"address" db:"address"`
	BirthDate       time.Time `json:"birth_date" db:"birth_date"`
	Points          int       `json:"points" db:"points"`
	IsAdmin         bool      `json:"is_admin" db:"is_admin"`
	WantsExplicit   bool      `json:"wants_explicit" db:"wants_explicit"`
	WantsMultimedia bool      `json:"wants_multimedia" db:"wants_multimedia"`
	Plan            string    `json:"plan" db:"plan"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &clone
}
