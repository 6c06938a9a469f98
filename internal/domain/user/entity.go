package user

// User represents a user entity in the system.
type User struct {
	ID    string `json:"id"`    // ID is assigned by the persistence layer on first save
	Name  string `json:"name"`  // Name is the display name of the user, never empty once persisted
	Email string `json:"email"` // Email is a syntactically valid email address
}

// Patch is a partial set of user fields. A nil field is absent and keeps
// the stored value.
type Patch struct {
	Name  *string
	Email *string
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil
}

// Apply returns a copy of u with every present patch field overriding the
// stored value.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	return u
}
