package domain

import "time"

// CandidateStatus represents account lifecycle states for a candidate.
type CandidateStatus string

const (
	CandidateStatusActive    CandidateStatus = "ACTIVE"
	CandidateStatusSuspended CandidateStatus = "SUSPENDED"
)

// Candidate is the domain model for campaign candidates who open tickets.
type Candidate struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       CandidateStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is a platform administrator account.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
