package domain

import "time"

// Queue is a named bucket tickets are routed into. It owns categories and
// the set of users eligible to be assigned tickets from it.
type Queue struct {
	ID              string
	Name            string
	Description     string
	AssignedUserIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Category is a sub-classification of a ticket, scoped to exactly one queue.
type Category struct {
	ID      string
	QueueID string
	Name    string
}

// UserRef is the minimal user-directory projection used when rendering
// history actors. The directory itself is an external collaborator.
type UserRef struct {
	ID          string
	DisplayName string
}
