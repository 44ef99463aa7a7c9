package user

// User represents a user entity in the system.
type User struct {
	ID       string // ID is assigned by the data store; empty until first save
	Name     string // Name is the full name of the user
	Email    string // Email is the unique email address of the user
	Password string // Password is stored as received
}
