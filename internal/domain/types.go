package domain

import (
	"strings"
	"time"
)

// Location is where a task was captured. Address is a best-effort label and
// is nil when no address could be resolved.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

// Clone returns a copy that does not share the address with loc.
func (loc Location) Clone() Location {
	if loc.Address != nil {
		loc.Address = StringPtr(*loc.Address)
	}
	return loc
}

type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PhotoURI  string    `json:"photoUri"`
	Location  Location  `json:"location"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Location = t.Location.Clone()
	return t
}

// TaskInput is the form data accepted when creating or editing a task.
// PhotoURI is a source handle; it is copied into photo storage unless it
// already equals the task's stored handle.
type TaskInput struct {
	Title    string
	PhotoURI string
	Location Location
}

// NormalizedTitle returns the title with surrounding whitespace removed.
func (in TaskInput) NormalizedTitle() string {
	return strings.TrimSpace(in.Title)
}

// StringPtr returns a pointer to s, for building optional addresses.
func StringPtr(s string) *string {
	return &s
}
