package model

import "time"

// ActionType enumerates every kind of activity entry the system can
// produce.  The set is closed: Describe and Icon switch over every
// value with no default, so adding a new action without updating them
// is caught the moment the new code path is exercised, and Valid keeps
// unknown strings out of the table.
type ActionType string

const (
	ActionUserAdded            ActionType = "user_added"
	ActionTaskCreated          ActionType = "task_created"
	ActionTaskAssigned         ActionType = "task_assigned"
	ActionTaskCompleted        ActionType = "task_completed"
	ActionTaskMarkedDone       ActionType = "task_marked_done"
	ActionTaskApproved         ActionType = "task_approved"
	ActionTaskRejected         ActionType = "task_rejected"
	ActionTaskReassigned       ActionType = "task_reassigned"
	ActionDirectorApprovedTask ActionType = "director_approved_task"
	ActionCustomMessage        ActionType = "custom_message"
	ActionTaskDeleted          ActionType = "task_deleted"
	ActionDeadlineExtended     ActionType = "deadline_extended"
	ActionPasswordResetRequest ActionType = "password_reset_request"
	ActionTokensGiven          ActionType = "tokens_given"
)

// AllActionTypes lists every ActionType.  Kept in one place so tests can
// verify the lookup functions below stay exhaustive.
var AllActionTypes = []ActionType{
	ActionUserAdded,
	ActionTaskCreated,
	ActionTaskAssigned,
	ActionTaskCompleted,
	ActionTaskMarkedDone,
	ActionTaskApproved,
	ActionTaskRejected,
	ActionTaskReassigned,
	ActionDirectorApprovedTask,
	ActionCustomMessage,
	ActionTaskDeleted,
	ActionDeadlineExtended,
	ActionPasswordResetRequest,
	ActionTokensGiven,
}

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	for _, t := range AllActionTypes {
		if a == t {
			return true
		}
	}
	return false
}

// Describe returns a short human-readable label for the action.  The
// switch is exhaustive over the closed set; unknown values fall out as
// the raw string so a bad row is still renderable.
func (a ActionType) Describe() string {
	switch a {
	case ActionUserAdded:
		return "user added"
	case ActionTaskCreated:
		return "task created"
	case ActionTaskAssigned:
		return "task assigned"
	case ActionTaskCompleted:
		return "task completed"
	case ActionTaskMarkedDone:
		return "task submitted for review"
	case ActionTaskApproved:
		return "task approved"
	case ActionTaskRejected:
		return "task rejected"
	case ActionTaskReassigned:
		return "task reassigned"
	case ActionDirectorApprovedTask:
		return "director approved task"
	case ActionCustomMessage:
		return "message"
	case ActionTaskDeleted:
		return "task deleted"
	case ActionDeadlineExtended:
		return "deadline extended"
	case ActionPasswordResetRequest:
		return "password reset"
	case ActionTokensGiven:
		return "tokens given"
	}
	return string(a)
}

// Icon returns the glyph the dashboard renders next to an entry.
func (a ActionType) Icon() string {
	switch a {
	case ActionUserAdded:
		return "user-plus"
	case ActionTaskCreated, ActionTaskAssigned:
		return "clipboard"
	case ActionTaskCompleted, ActionTaskApproved:
		return "check-circle"
	case ActionTaskMarkedDone:
		return "inbox"
	case ActionTaskRejected:
		return "x-circle"
	case ActionTaskReassigned:
		return "refresh"
	case ActionDirectorApprovedTask:
		return "shield-check"
	case ActionCustomMessage:
		return "message"
	case ActionTaskDeleted:
		return "trash"
	case ActionDeadlineExtended:
		return "clock"
	case ActionPasswordResetRequest:
		return "key"
	case ActionTokensGiven:
		return "gift"
	}
	return "dot"
}

// Activity is one immutable row in the `activity_log` table.  Exactly
// one row is written per successful lifecycle transition; failed
// transitions write nothing.
//
// Fields:
//
//	ID           – primary key identifier.
//	ActorID      – profile that performed the action.
//	Action       – one of the Action* constants.
//	TargetUserID – profile the action was aimed at, if any (nullable).
//	TaskID       – task involved, if any; nulled when the task is deleted.
//	Message      – rendered human-readable message.
//	CreatedAt    – timestamp of the action.
type Activity struct {
	ID           uint64     // activity_log.id
	ActorID      uint64     // activity_log.actor_id
	Action       ActionType // activity_log.action
	TargetUserID *uint64    // activity_log.target_user_id (nullable)
	TaskID       *uint64    // activity_log.task_id (nullable)
	Message      string     // activity_log.message
	CreatedAt    time.Time  // activity_log.created_at
}
