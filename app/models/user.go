package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

// ValidRole reports whether role is one of the two account kinds.
func ValidRole(role string) bool {
	return role == RoleFarmer || role == RoleBuyer
}

// User is an account plus its role-specific profile fields. The same email
// may hold one farmer and one buyer account.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password,omitempty"` // bcrypt hash, never rendered
	Role     string             `bson:"role"`
	Phone    string             `bson:"phone,omitempty"`

	// farmer
	Crops           []string `bson:"crops,omitempty"`
	FarmSize        string   `bson:"farm_size,omitempty"`
	ExperienceYears string   `bson:"experience_years,omitempty"`

	// buyer
	BusinessName string `bson:"business_name,omitempty"`
	BusinessType string `bson:"business_type,omitempty"`

	Location string `bson:"location,omitempty"`
}

// Account is the signup/login rendering: identity fields only.
func (u *User) Account() map[string]any {
	out := map[string]any{
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
	if !u.ID.IsZero() {
		out["_id"] = u.ID.Hex()
	}
	return out
}

// Profile renders every field of the role's template, filled from u.
func (u *User) Profile() map[string]any {
	out := DefaultProfile(u.Email, u.Role)
	if !u.ID.IsZero() {
		out["_id"] = u.ID.Hex()
	}
	out["name"] = u.Name
	out["phone"] = u.Phone
	out["location"] = u.Location

	switch u.Role {
	case RoleFarmer:
		crops := u.Crops
		if crops == nil {
			crops = []string{}
		}
		out["crops"] = crops
		out["farm_size"] = u.FarmSize
		out["experience_years"] = u.ExperienceYears
	case RoleBuyer:
		out["business_name"] = u.BusinessName
		out["business_type"] = u.BusinessType
	}
	return out
}

// DefaultProfile is the empty template returned when no profile is stored.
func DefaultProfile(email, role string) map[string]any {
	out := map[string]any{
		"email":    email,
		"role":     role,
		"name":     "",
		"phone":    "",
		"location": "",
	}
	switch role {
	case RoleFarmer:
		out["crops"] = []string{}
		out["farm_size"] = ""
		out["experience_years"] = ""
	case RoleBuyer:
		out["business_name"] = ""
		out["business_type"] = ""
	}
	return out
}
