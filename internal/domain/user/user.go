package user

import "errors"

var (
	ErrNotFound           = errors.New("user: not found")
	ErrUsernameTaken      = errors.New("user: username already exists")
	ErrEmailTaken         = errors.New("user: email already exists")
	ErrInvalidCredentials = errors.New("user: invalid username or password")
	ErrInvalidRole        = errors.New("user: unknown role")
	ErrInvalidPassword    = errors.New("user: password must be 3-40 characters")
)

const (
	RoleAdmin          = "ROLE_ADMIN"
	RoleManager        = "ROLE_MANAGER"
	RoleWarehouseStaff = "ROLE_WAREHOUSE_STAFF"
	RoleUser           = "ROLE_USER"
)

// ValidRoles is the closed set a signup may request.
var ValidRoles = map[string]bool{
	RoleAdmin:          true,
	RoleManager:        true,
	RoleWarehouseStaff: true,
	RoleUser:           true,
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}
