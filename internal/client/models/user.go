// Package models defines the client-side records that never leave the device.
package models

import "slices"

// Role names used by the demo data set.
const (
	RoleFieldOperator     = "Field Operator"
	RoleOperationsManager = "Operations Manager"
	RoleComplianceOfficer = "Compliance/Audit Officer"
	RoleExecutive         = "Executive"
	RoleTrainingOfficer   = "Training Officer"
)

// User is a local account. Email is unique, case-insensitively.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
}

func (u *User) HasPermission(p string) bool {
	return slices.Contains(u.Permissions, p)
}

// Session binds a token to a user. CreatedAt is epoch millis.
type Session struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt int64
}
