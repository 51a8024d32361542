package model

// User is the read-only view of an end user owned by the external identity store
type User struct {
	ID    string
	Email string
	Name  string
}
