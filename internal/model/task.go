package model

import "time"

// Task status values as stored in tasks.status.  A task moves
// PENDING -> UNDER_REVIEW -> COMPLETED or REJECTED; reassignment puts a
// reviewed task back to PENDING without touching director approval.
const (
	StatusPending     = "PENDING"
	StatusUnderReview = "UNDER_REVIEW"
	StatusCompleted   = "COMPLETED"
	StatusRejected    = "REJECTED"
)

// Task represents a unit of assigned work in the `tasks` table.
//
// Fields:
//
//	ID               – primary key identifier.
//	CreatorID        – profile that created the task.
//	AssigneeID       – profile the task is assigned to.
//	Title            – short title.
//	Description      – free-form description.
//	Deadline         – due timestamp; strictly future at create/edit time.
//	TokenValue       – tokens at stake, 0..configured cap.
//	Status           – one of the Status* constants above.
//	DirectorApproved – false only while an Admin-created task awaits a
//	                   Director's sign-off; assignees cannot see the task
//	                   until this becomes true.
//	SubmittedAt      – when the assignee marked the task done (nullable).
//	ApprovedAt       – when a reviewer completed the task (nullable).
//	SubmissionNote   – optional note attached by the assignee.
//	AdminFeedback    – optional reviewer feedback.
//	OriginalDeadline – the deadline before the first extension; set once
//	                   and preserved across further extensions (nullable).
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Task struct {
	ID               uint64     // tasks.id
	CreatorID        uint64     // tasks.creator_id
	AssigneeID       uint64     // tasks.assignee_id
	Title            string     // tasks.title
	Description      string     // tasks.description
	Deadline         time.Time  // tasks.deadline
	TokenValue       uint32     // tasks.token_value
	Status           string     // tasks.status
	DirectorApproved bool       // tasks.director_approved
	SubmittedAt      *time.Time // tasks.submitted_at (nullable)
	ApprovedAt       *time.Time // tasks.approved_at (nullable)
	SubmissionNote   *string    // tasks.submission_note (nullable)
	AdminFeedback    *string    // tasks.admin_feedback (nullable)
	OriginalDeadline *time.Time // tasks.original_deadline (nullable)
	CreatedAt        time.Time  // tasks.created_at
	UpdatedAt        time.Time  // tasks.updated_at
}
