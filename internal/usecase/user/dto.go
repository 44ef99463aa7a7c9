package user

// CreateUserRequest represents the request payload for creating a new user.
// An id in the payload is never bound.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,notblank,size,trimstring"`
	Email    string `json:"email" binding:"required,notblank,email,trimstring"`
	Password string `json:"password" binding:"required,notblank,size,trimstring"`
}

// UpdateUserRequest represents a partial update. Nil fields are left untouched
// and are not validated.
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,notblank,size,trimstring"`
	Email    *string `json:"email" binding:"omitempty,notblank,email,trimstring"`
	Password *string `json:"password" binding:"omitempty,notblank,size,trimstring"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
