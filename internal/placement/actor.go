package placement

import "fmt"

// Role identifies which party an actor speaks for. The identity gate
// resolves the calling principal to exactly one role.
type Role string

const (
	RoleStudent      Role = "STUDENT"
	RoleOrganization Role = "ORGANIZATION"
	RoleDirector     Role = "DIRECTOR"
)

// ParseRole converts a raw string to a Role, returning an error for unknown
// values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleStudent, RoleOrganization, RoleDirector:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the resolved calling principal supplied to every operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
