package models

import (
	"fmt"
	"time"
)

// UserRole is the closed set of account roles. The role payloads below are
// matched exhaustively wherever a role is consumed; there is no inheritance
// hierarchy to dispatch through.
type UserRole string

const (
	RoleStudent       UserRole = "STUDENT"
	RoleAdministrator UserRole = "ADMINISTRATOR"
)

// StudentProfile is the role payload attached to student accounts.
type StudentProfile struct {
	StudentNumber string `json:"student_number"`
	Major         string `json:"major"`
}

// AdminProfile is the role payload attached to administrator accounts.
type AdminProfile struct {
	Level string `json:"level"`
}

// User is an application account. Exactly one of the role payloads is set,
// matching Role.
type User struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         UserRole        `json:"role"`
	Student      *StudentProfile `json:"student,omitempty"`
	Admin        *AdminProfile   `json:"admin,omitempty"`
	Active       bool            `json:"active"`
	LastLogin    *time.Time      `json:"last_login,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UserRecord is the wire representation handed to the persistence
// collaborator. Unlike User's JSON form it carries the password hash.
type UserRecord struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	PasswordHash  string  `json:"password_hash"`
	Role          string  `json:"role"`
	StudentNumber string  `json:"student_number,omitempty"`
	Major         string  `json:"major,omitempty"`
	AdminLevel    string  `json:"admin_level,omitempty"`
	Active        bool    `json:"active"`
	LastLogin     *string `json:"last_login,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// Record converts the user into its wire representation.
func (u *User) Record() UserRecord {
	rec := UserRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt.Format(time.RFC3339),
	}
	if u.Student != nil {
		rec.StudentNumber = u.Student.StudentNumber
		rec.Major = u.Student.Major
	}
	if u.Admin != nil {
		rec.AdminLevel = u.Admin.Level
	}
	if u.LastLogin != nil {
		ts := u.LastLogin.Format(time.RFC3339)
		rec.LastLogin = &ts
	}
	return rec
}

// UserFromRecord decodes a wire record, failing loudly on corrupt data.
func UserFromRecord(rec UserRecord) (*User, error) {
	if rec.ID == "" || rec.Username == "" {
		return nil, fmt.Errorf("user record missing id or username")
	}
	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %s has invalid created_at: %w", rec.ID, err)
	}
	user := &User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Active:       rec.Active,
		CreatedAt:    createdAt,
	}
	switch UserRole(rec.Role) {
	case RoleStudent:
		user.Role = RoleStudent
		user.Student = &StudentProfile{StudentNumber: rec.StudentNumber, Major: rec.Major}
	case RoleAdministrator:
		user.Role = RoleAdministrator
		user.Admin = &AdminProfile{Level: rec.AdminLevel}
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", rec.ID, rec.Role)
	}
	if rec.LastLogin != nil {
		ts, err := time.Parse(time.RFC3339, *rec.LastLogin)
		if err != nil {
			return nil, fmt.Errorf("user %s has invalid last_login: %w", rec.ID, err)
		}
		user.LastLogin = &ts
	}
	return user, nil
}

// Clone returns a copy safe to hand outside the registry lock.
func (u *User) Clone() *User {
	clone := *u
	if u.Student != nil {
		student := *u.Student
		clone.Student = &student
	}
	if u.Admin != nil {
		admin := *u.Admin
		clone.Admin = &admin
	}
	if u.LastLogin != nil {
		ts := *u.LastLogin
		clone.LastLogin = &ts
	}
	return &clone
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
