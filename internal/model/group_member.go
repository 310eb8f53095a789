package model

import (
	"time"
)

const (
	GroupRoleOwner  = "owner"
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

type GroupMember struct {
	ID        string    `db:"id"`
	GroupID   string    `db:"group_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	JoinedAt  time.Time `db:"joined_at"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (m *GroupMember) IsOwner() bool {
	return m.Role == GroupRoleOwner
}

// IsAdmin reports whether the member can manage group goals.
func (m *GroupMember) IsAdmin() bool {
	return m.Role == GroupRoleOwner || m.Role == GroupRoleAdmin
}
