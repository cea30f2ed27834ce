package model

import "time"

// LedgerEntry is one immutable row in the `points_ledger` table.  A row
// is written for every task-completion award (including zero-token
// awards) and never updated afterwards.  Direct token gifts do not
// produce ledger rows; they are visible only in the activity log, which
// is what distinguishes gifted tokens from task-earned ones.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – profile the tokens were awarded to.
//	TaskID        – task the award came from; nulled when the task is
//	                deleted so the audit row survives.
//	TokensAwarded – number of tokens awarded (may be 0).
//	Reason        – human-readable explanation of the award.
//	CreatedAt     – timestamp of the award.
type LedgerEntry struct {
	ID            uint64    // points_ledger.id
	UserID        uint64    // points_ledger.user_id
	TaskID        *uint64   // points_ledger.task_id (nullable)
	TokensAwarded uint32    // points_ledger.tokens_awarded
	Reason        string    // points_ledger.reason
	CreatedAt     time.Time // points_ledger.created_at
}
