// Package models holds the server-side records shared by repositories and
// services.
package models

import "time"

// User is a registered account. PasswordHash is the encoded output of a
// PasswordHasher, never the plaintext.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
