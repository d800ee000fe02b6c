// Package domain contains entities without logic, just meta-data.
package domain

// UserID is the durable identifier assigned by the identity store.
type UserID string

// User is read-only in this core; the identity service owns writes.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}
