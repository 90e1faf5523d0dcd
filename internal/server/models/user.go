package models

import "time"

// User is an administrator allowed to publish newsletters. PasswordHash is
// an Argon2id PHC string.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
