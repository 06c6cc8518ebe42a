package models

import (
	"fmt"
	"time"
)

// Student represents a learner registered on the class roster.
// ID is the natural key derived from class and roll number and never changes.
type Student struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Class        string    `json:"class"`
	Number       int       `json:"number"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Premium      bool      `json:"premium"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentID derives the roster key for a class and roll number.
func StudentID(class string, number int) string {
	return fmt.Sprintf("%s-%d", class, number)
}

// FullName joins first and last name the way leaderboards display it.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Public returns a copy stripped of credential material.
func (s Student) Public() Student {
	s.PasswordHash = ""
	return s
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search string
	Class  string
}
