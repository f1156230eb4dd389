package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"

	DefaultRole  = RoleStudent
	DefaultTheme = "light"
)

// Roles lists the known roles in display order.
func Roles() []Role {
	return []Role{RoleStudent, RoleLecturer, RoleAdmin}
}

// ParseRole returns the matching known role. Unknown input yields DefaultRole
// and false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStudent:
		return RoleStudent, true
	case RoleLecturer:
		return RoleLecturer, true
	default:
		return DefaultRole, false
	}
}

// QueryContext narrows a query to a course and topic. Empty fields are absent.
type QueryContext struct {
	Course string `json:"course,omitempty"`
	Topic  string `json:"topic,omitempty"`
}

// QueryContextFromMap picks the recognized keys out of a free-form mapping.
func QueryContextFromMap(m map[string]string) QueryContext {
	if m == nil {
		return QueryContext{}
	}

	return QueryContext{
		Course: m["course"],
		Topic:  m["topic"],
	}
}

func (c QueryContext) IsEmpty() bool {
	return c.Course == "" && c.Topic == ""
}

type ChatLog struct {
	ID        int64
	UserID    int64
	Role      Role
	Query     string
	Response  string
	Context   QueryContext
	CreatedAt time.Time
}

type UserPreferences struct {
	UserID              int64
	DefaultRole         Role
	EnableNotifications bool
	Theme               string
}

func DefaultUserPreferences(userID int64) UserPreferences {
	return UserPreferences{
		UserID:              userID,
		DefaultRole:         DefaultRole,
		EnableNotifications: true,
		Theme:               DefaultTheme,
	}
}
