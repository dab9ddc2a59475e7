// Package user defines the user model used throughout the application,
// particularly for authentication and ownership checks.
package user

// User represents a registered account. PasswordHash holds a bcrypt digest
// and is never serialized into responses.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	Name  string `json:"name"`
	Email string `json:"email"`

	PasswordHash string `json:"-"`
}
