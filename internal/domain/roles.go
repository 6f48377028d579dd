package domain

import "strings"

// Role ranks form a strict hierarchy: admin satisfies every operator
// requirement, never the other way around.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) Rank() int {
	switch r {
	case RoleOperator:
		return 1
	case RoleAdmin:
		return 2
	}
	return 0
}

// AtLeast reports whether r satisfies the required role. Unknown roles on
// either side satisfy nothing.
func (r Role) AtLeast(required Role) bool {
	rr, qr := r.Rank(), required.Rank()
	return rr > 0 && qr > 0 && rr >= qr
}

func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleOperator:
		return RoleOperator
	}
	return ""
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt Time   `json:"created_at"`
}
