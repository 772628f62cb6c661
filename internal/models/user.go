package models

// Role tags granting access to a screen set.
const (
	RoleOrganizer = "organizer"
	RoleTeam      = "team"
	RoleSpectator = "spectator"
	RoleAdmin     = "admin"
)

// Identity is the externally issued record of who the user is (mapped from
// id token claims). The core never mutates it.
type Identity struct {
	ID          string `bson:"id" json:"id"` // OIDC subject
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber string `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
}

// Profile is the application-owned user record keyed by identity id.
// Older records carry a singular Role instead of Roles.
type Profile struct {
	ID          string   `bson:"_id,omitempty" json:"id"`
	Roles       []string `bson:"roles,omitempty" json:"roles,omitempty"`
	Role        string   `bson:"role,omitempty" json:"role,omitempty"`
	DisplayName string   `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Email       string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string   `bson:"phone,omitempty" json:"phone,omitempty"`
}
