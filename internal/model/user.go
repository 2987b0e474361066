// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over inheritance,
// so an Article embeds its author's Profile rather than extending a base type.
package model

import "time"

// User represents a registered account.
//
// WHY *string FOR Bio AND Image?
// Both are optional and the API distinguishes "never set" (JSON null) from a value.
// A nil pointer marshals as null; an empty string would marshal as "".
//
// PasswordHash is the bcrypt output, which embeds its own per-user salt.
// The `json:"-"` tag keeps it out of every response.
type User struct {
	ID           string    `json:"-"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          *string   `json:"bio"`
	Image        *string   `json:"image"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Profile is the public view of a user as seen by a viewer.
// Following is always false for anonymous viewers.
type Profile struct {
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

// ProfileOf builds the public view of u. following is computed by the caller.
func ProfileOf(u *User, following bool) Profile {
	return Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}
