package models

// Actor identifies the caller of a workflow operation, as supplied by the session layer.
type Actor struct {
	UserID string
	Role   Role
	// Career is the student's own career; staff leave it empty.
	Career string
}
