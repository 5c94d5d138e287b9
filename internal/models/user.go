package models

// User is a registered account in the global users collection.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	// PasswordSecret is compared verbatim on login; it is not a hash.
	PasswordSecret string `json:"password"`
}

// Identity returns the public part of the user that a session exposes.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the authenticated user as seen by the rest of the system.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session marks one identity as logged in on this store.
type Session struct {
	Token string
	User  Identity
}
