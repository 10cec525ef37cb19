package models

import (
	"time"
)

// User represents an account that can sign in and own tokens
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Password  string    `gorm:"not null" json:"-"`
	Status    Status    `gorm:"not null" json:"status"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Roles []Role `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may hold a security context.
func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.Enabled
}

// AuthorityNames flattens active role names and their authorities, without duplicates.
func (u *User) AuthorityNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(u.Roles))
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, role := range u.Roles {
		if role.Status != StatusActive {
			continue
		}
		add(role.Name)
		for _, authority := range role.Authorities {
			add(authority.Name)
		}
	}
	return names
}

// Role groups authorities, e.g. MEMBER or ADMIN
type Role struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	Name        string      `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Status      Status      `gorm:"not null" json:"status"`
	Authorities []Authority `gorm:"many2many:role_authorities" json:"authorities,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName overrides the table name
func (Role) TableName() string {
	return "roles"
}

// Authority is a single privilege such as READ_BASIC
type Authority struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Authority) TableName() string {
	return "authorities"
}
