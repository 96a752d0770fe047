package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a coarse-grained permission tag on a User.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleTaskCreator  Role = "TASK_CREATOR"
	RoleReadOnlyUser Role = "READ_ONLY_USER"
	RoleUser         Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTaskCreator, RoleReadOnlyUser, RoleUser:
		return true
	}
	return false
}

// User represents an application user. Users are created on first successful
// login (role USER) or by an administrator.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Role           Role               `bson:"role" json:"role"`
	EmailVerified  bool               `bson:"emailVerified" json:"emailVerified"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
