package user

import domain "user-service/internal/domain/user"

// CreateUserInput is the input contract for creating a user.
type CreateUserInput struct {
	Name  string `json:"name" validate:"notblank" label:"nome"`
	Email string `json:"email" validate:"notblank,email" label:"email"`
}

// UpdateUserInput is the input contract for updating a user. Absent fields
// keep their stored value; present fields follow the create constraints.
type UpdateUserInput struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,notblank" label:"nome"`
	Email *string `json:"email,omitempty" validate:"omitnil,notblank,email" label:"email"`
}

// Patch converts the input into a domain patch.
func (in UpdateUserInput) Patch() domain.Patch {
	return domain.Patch{Name: in.Name, Email: in.Email}
}
