package booking

type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "admin"
)

// Actor identifies who is performing an operation. It is threaded
// explicitly through every call; there is no ambient "current user".
// For client actors ClientID names their client profile row.
type Actor struct {
	ID       string
	Role     Role
	ClientID string
}

func (a Actor) Staff() bool {
	return a.Role == RoleStaff
}
