package user

import domain "reactive-user-service/internal/domain/user"

// ToEntity builds a new, unsaved user from a create request.
func ToEntity(in CreateUserRequest) *domain.User {
	return &domain.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	}
}

// MergeEntity copies the non-nil fields of in onto u and returns u.
// The id is never touched.
func MergeEntity(in UpdateUserRequest, u *domain.User) *domain.User {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Password != nil {
		u.Password = *in.Password
	}
	return u
}

// ToResponse renders a user in its public representation.
func ToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
	}
}

// ToResponses renders every user. It never returns nil, so an empty list
// encodes as [].
func ToResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToResponse(&users[i]))
	}
	return out
}
