package repository

// Database-backed tests for the SQL paths the in-memory service fakes
// cannot exercise: the cascade deletes, the guarded-update conflict
// detection and the in-transaction employee-code assignment. They run
// against a disposable MySQL database named by TEST_DB_DSN (the DSN
// must include parseTime=true&loc=UTC) and skip when it is unset.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/revanthm1902/task-token-tracker/internal/database"
	"github.com/revanthm1902/task-token-tracker/internal/model"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database-backed tests")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Child tables first so the foreign keys never block the wipe.
	for _, table := range []string{
		"activity_log", "points_ledger", "password_reset_requests",
		"refresh_tokens", "tasks", "profiles", "users",
	} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	return db
}

func provisionAccount(t *testing.T, users *UserRepo, email, role string) Account {
	t.Helper()
	acct, err := users.Provision(context.Background(), email, "x-not-a-real-hash-x", "Test Person", role, "EMP", nil)
	if err != nil {
		t.Fatalf("provision %s: %v", email, err)
	}
	return acct
}

func insertTask(t *testing.T, tasks *TaskRepo, creatorID, assigneeID uint64) model.Task {
	t.Helper()
	task := model.Task{
		CreatorID:        creatorID,
		AssigneeID:       assigneeID,
		Title:            "db test task",
		Description:      "exercise the schema",
		Deadline:         time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second),
		TokenValue:       100,
		DirectorApproved: true,
	}
	if err := tasks.Insert(context.Background(), &task); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	return task
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

func TestProvisionAssignsSequentialEmployeeCodes(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	prefix := fmt.Sprintf("EMP-%d-", time.Now().UTC().Year())

	var codes []string
	for i := 1; i <= 3; i++ {
		acct := provisionAccount(t, users, fmt.Sprintf("seq%d@example.com", i), model.RoleUser)
		if !strings.HasPrefix(acct.EmployeeCode, prefix) {
			t.Fatalf("code %q does not start with %q", acct.EmployeeCode, prefix)
		}
		want := fmt.Sprintf("%s%03d", prefix, i)
		if acct.EmployeeCode != want {
			t.Fatalf("code: got %q, want %q", acct.EmployeeCode, want)
		}
		codes = append(codes, acct.EmployeeCode)
	}
	if n := countRows(t, db, `SELECT COUNT(DISTINCT employee_code) FROM profiles`); n != len(codes) {
		t.Fatalf("codes not unique: %d distinct of %d", n, len(codes))
	}

	// A fully provisioned email is a conflict.
	if _, err := users.Provision(context.Background(), "seq1@example.com", "h", "Dup", model.RoleUser, "EMP", nil); !errors.Is(err, ErrProfileExists) {
		t.Fatalf("duplicate provision: got %v, want ErrProfileExists", err)
	}
}

func TestProvisionRepairsOrphanIdentity(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	// An identity without a profile is what a partial provisioning
	// failure leaves behind.
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`, "orphan@example.com", "old-hash")
	if err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	orphanID, _ := res.LastInsertId()

	acct := provisionAccount(t, users, "orphan@example.com", model.RoleUser)
	if acct.UserID != uint64(orphanID) {
		t.Fatalf("repair created a new identity: got id %d, want %d", acct.UserID, orphanID)
	}
	if acct.PasswordHash == "old-hash" {
		t.Fatalf("orphan repair kept the stale password hash")
	}
	if !acct.TempPassword {
		t.Fatalf("repaired account must carry the temporary-password flag")
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM users WHERE email = ?`, "orphan@example.com"); n != 1 {
		t.Fatalf("identity rows for orphan email: got %d, want 1", n)
	}
}

func TestProvisionConcurrentCodesStayUnique(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	const workers = 4

	// Concurrent provisioning contends on the locking MAX(suffix) read;
	// InnoDB may resolve the contention by killing one transaction, so
	// each worker retries on failure. What must hold afterwards is one
	// profile per worker with all codes distinct.
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("conc%d@example.com", i)
			for attempt := 0; attempt < 5; attempt++ {
				_, err := users.Provision(context.Background(), email, "h", "Concurrent", model.RoleUser, "EMP", nil)
				errs[i] = err
				if err == nil {
					return
				}
				time.Sleep(50 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d never provisioned: %v", i, err)
		}
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM profiles`); n != workers {
		t.Fatalf("profiles: got %d, want %d", n, workers)
	}
	if n := countRows(t, db, `SELECT COUNT(DISTINCT employee_code) FROM profiles`); n != workers {
		t.Fatalf("employee codes collided: %d distinct of %d", n, workers)
	}
}

func TestUserDeleteCascadeLeavesNoDanglingReferences(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	tasks := NewTaskRepo(db)
	ledger := NewLedgerRepo(db)
	activity := NewActivityRepo(db)
	resets := NewResetRepo(db)
	tokens := NewTokenRepo(db)
	ctx := context.Background()

	director := provisionAccount(t, users, "director@example.com", model.RoleDirector)
	victim := provisionAccount(t, users, "victim@example.com", model.RoleUser)
	bystander := provisionAccount(t, users, "bystander@example.com", model.RoleUser)

	victimTask := insertTask(t, tasks, director.UserID, victim.UserID)
	otherTask := insertTask(t, tasks, director.UserID, bystander.UserID)

	if err := ledger.Record(ctx, victim.UserID, &victimTask.ID, 120, "on time"); err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if err := ledger.Record(ctx, bystander.UserID, &otherTask.ID, 50, "late"); err != nil {
		t.Fatalf("ledger: %v", err)
	}
	entries := []model.Activity{
		{ActorID: victim.UserID, Action: model.ActionTaskMarkedDone, TaskID: &victimTask.ID, Message: "submitted"},
		{ActorID: director.UserID, Action: model.ActionTaskApproved, TargetUserID: &victim.UserID, TaskID: &victimTask.ID, Message: "approved"},
		{ActorID: director.UserID, Action: model.ActionTaskCreated, TargetUserID: &bystander.UserID, TaskID: &otherTask.ID, Message: "created"},
	}
	for _, e := range entries {
		if err := activity.Record(ctx, e); err != nil {
			t.Fatalf("activity: %v", err)
		}
	}
	if err := tokens.StoreRefresh(ctx, victim.UserID, strings.Repeat("a", 64), time.Now().UTC().Add(24*time.Hour)); err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if _, err := resets.Create(ctx, "victim@example.com"); err != nil {
		t.Fatalf("reset request: %v", err)
	}
	pending, err := resets.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending resets: %d, err %v", len(pending), err)
	}
	if err := resets.Resolve(ctx, pending[0].ID, victim.UserID, model.ResetApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := users.DeleteCascade(ctx, victim.UserID); err != nil {
		t.Fatalf("delete cascade: %v", err)
	}

	// No reference to the deleted account may survive, anywhere.
	dangling := []struct {
		what  string
		query string
	}{
		{"identity", `SELECT COUNT(*) FROM users WHERE id = ?`},
		{"profile", `SELECT COUNT(*) FROM profiles WHERE user_id = ?`},
		{"refresh tokens", `SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?`},
		{"tasks (creator)", `SELECT COUNT(*) FROM tasks WHERE creator_id = ?`},
		{"tasks (assignee)", `SELECT COUNT(*) FROM tasks WHERE assignee_id = ?`},
		{"ledger rows", `SELECT COUNT(*) FROM points_ledger WHERE user_id = ?`},
		{"activity authored", `SELECT COUNT(*) FROM activity_log WHERE actor_id = ?`},
		{"activity targets", `SELECT COUNT(*) FROM activity_log WHERE target_user_id = ?`},
		{"reset resolvers", `SELECT COUNT(*) FROM password_reset_requests WHERE resolved_by = ?`},
	}
	for _, d := range dangling {
		if n := countRows(t, db, d.query, victim.UserID); n != 0 {
			t.Fatalf("%s still reference the deleted user (%d rows)", d.what, n)
		}
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM points_ledger WHERE task_id = ?`, victimTask.ID); n != 0 {
		t.Fatalf("ledger rows still reference the deleted user's task")
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM activity_log WHERE task_id = ?`, victimTask.ID); n != 0 {
		t.Fatalf("activity rows still reference the deleted user's task")
	}

	// History that merely touched the user survives with references
	// nulled, and unrelated rows are untouched.
	if n := countRows(t, db, `SELECT COUNT(*) FROM activity_log`); n != 2 {
		t.Fatalf("surviving activity rows: got %d, want 2", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM password_reset_requests WHERE status = ?`, model.ResetApproved); n != 1 {
		t.Fatalf("resolved reset request vanished")
	}
	if _, err := tasks.GetByID(ctx, otherTask.ID); err != nil {
		t.Fatalf("bystander task gone: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM points_ledger WHERE user_id = ?`, bystander.UserID); n != 1 {
		t.Fatalf("bystander ledger row gone")
	}

	if err := users.DeleteCascade(ctx, victim.UserID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("double delete: got %v, want ErrNoRows", err)
	}
}

func TestTaskDeleteCascadePreservesHistory(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	tasks := NewTaskRepo(db)
	ledger := NewLedgerRepo(db)
	activity := NewActivityRepo(db)
	ctx := context.Background()

	director := provisionAccount(t, users, "director@example.com", model.RoleDirector)
	worker := provisionAccount(t, users, "worker@example.com", model.RoleUser)
	task := insertTask(t, tasks, director.UserID, worker.UserID)

	if err := ledger.Record(ctx, worker.UserID, &task.ID, 120, "on time"); err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if err := activity.Record(ctx, model.Activity{
		ActorID: director.UserID, Action: model.ActionTaskApproved,
		TargetUserID: &worker.UserID, TaskID: &task.ID, Message: "approved",
	}); err != nil {
		t.Fatalf("activity: %v", err)
	}

	if err := tasks.DeleteCascade(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM tasks WHERE id = ?`, task.ID); n != 0 {
		t.Fatalf("task row survived its deletion")
	}
	// Award and audit history survive with the task reference nulled.
	if n := countRows(t, db, `SELECT COUNT(*) FROM points_ledger WHERE user_id = ? AND task_id IS NULL`, worker.UserID); n != 1 {
		t.Fatalf("ledger history lost or still referencing the task")
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM activity_log WHERE task_id IS NULL`); n != 1 {
		t.Fatalf("activity history lost or still referencing the task")
	}
	if err := tasks.DeleteCascade(ctx, task.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("double delete: got %v, want ErrNoRows", err)
	}
}

func TestGuardedTransitionsAgainstSchema(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	tasks := NewTaskRepo(db)
	ctx := context.Background()

	admin := provisionAccount(t, users, "admin@example.com", model.RoleAdmin)
	worker := provisionAccount(t, users, "worker@example.com", model.RoleUser)
	other := provisionAccount(t, users, "other@example.com", model.RoleUser)

	task := model.Task{
		CreatorID:   admin.UserID,
		AssigneeID:  worker.UserID,
		Title:       "guarded",
		Description: "state machine",
		Deadline:    time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		TokenValue:  10,
	}
	if err := tasks.Insert(ctx, &task); err != nil {
		t.Fatalf("insert: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)

	// Unknown ids are not-found, not conflicts.
	if err := tasks.Complete(ctx, 999999, now); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("complete missing task: got %v, want ErrNoRows", err)
	}
	// Submitting through a closed approval gate is a conflict.
	if err := tasks.Submit(ctx, task.ID, worker.UserID, nil, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("submit unapproved: got %v, want ErrConflict", err)
	}
	if err := tasks.Approve(ctx, task.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// The assignee binding lives in the WHERE clause.
	if err := tasks.Submit(ctx, task.ID, other.UserID, nil, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("submit by non-assignee: got %v, want ErrConflict", err)
	}
	if err := tasks.Submit(ctx, task.ID, worker.UserID, nil, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tasks.Complete(ctx, task.ID, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// The completion guard is the double-award protection.
	if err := tasks.Complete(ctx, task.ID, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("double complete: got %v, want ErrConflict", err)
	}
	// Completed tasks are frozen against extension.
	if err := tasks.ExtendDeadline(ctx, task.ID, task.Deadline.Add(24*time.Hour)); !errors.Is(err, ErrConflict) {
		t.Fatalf("extend completed task: got %v, want ErrConflict", err)
	}

	// The balance increment path reports a missing profile.
	if err := users.IncrementTokens(ctx, 999999, 10); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("increment missing user: got %v, want ErrNoRows", err)
	}
	if err := users.IncrementTokens(ctx, worker.UserID, 120); err != nil {
		t.Fatalf("increment: %v", err)
	}
	acct, err := users.GetByID(ctx, worker.UserID)
	if err != nil || acct.TotalTokens != 120 {
		t.Fatalf("balance: got %d (err %v), want 120", acct.TotalTokens, err)
	}
}
