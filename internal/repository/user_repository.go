package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// UserRepo persists identities (`users`) and their organizational
// profiles (`profiles`). Provisioning and deletion are multi-step
// privileged operations, so they run inside a single transaction here,
// server-side, never as client-side read-then-write sequences.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Account joins an identity with its profile for callers that need both.
type Account struct {
	UserID       uint64
	Email        string
	PasswordHash string
	EmployeeCode string
	FullName     string
	Role         string
	TotalTokens  uint32
	TempPassword bool
	Phone        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const accountCols = `u.id, u.email, u.password_hash, p.employee_code, p.full_name,
       p.role, p.total_tokens, p.temp_password, p.phone, p.created_at, p.updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	var phone sql.NullString
	err := row.Scan(&a.UserID, &a.Email, &a.PasswordHash, &a.EmployeeCode, &a.FullName,
		&a.Role, &a.TotalTokens, &a.TempPassword, &phone, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	if phone.Valid {
		v := phone.String
		a.Phone = &v
	}
	return a, nil
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAccount(r.DB.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.email = ? LIMIT 1`,
		email))
}

// GetByID fetches an account by identity id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.id = ? LIMIT 1`,
		id))
}

// List returns all accounts ordered by employee code.
func (r *UserRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+accountCols+` FROM users u JOIN profiles p ON p.user_id = u.id ORDER BY p.employee_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Provision creates an authenticatable identity plus its profile in one
// transaction. The employee code is assigned inside the same
// transaction from the highest existing numeric suffix for the prefix;
// the locking read serializes concurrent provisioning so codes stay
// unique and monotonic.
//
// If an identity already exists for the email but has no profile (an
// orphan left by an earlier partial failure), provisioning completes
// the profile against the existing identity and replaces its password.
// If both identity and profile exist, ErrProfileExists is returned.
func (r *UserRepo) Provision(ctx context.Context, email, passwordHash, fullName, role, prefix string, phone *string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? LIMIT 1 FOR UPDATE`, email).Scan(&userID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, passwordHash)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				return Account{}, ErrEmailExists
			}
			return Account{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Account{}, err
		}
		userID = uint64(id)
	case err != nil:
		return Account{}, err
	default:
		// Identity exists. Reject if it already has a profile, otherwise
		// treat it as an orphan and finish setting it up.
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM profiles WHERE user_id = ?`, userID).Scan(&n); err != nil {
			return Account{}, err
		}
		if n > 0 {
			return Account{}, ErrProfileExists
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID); err != nil {
			return Account{}, err
		}
	}

	code, err := nextEmployeeCode(ctx, tx, prefix)
	if err != nil {
		return Account{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, employee_code, full_name, role, total_tokens, temp_password, phone)
         VALUES (?, ?, ?, ?, 0, 1, ?)`,
		userID, code, fullName, role, phone); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}
	return r.GetByID(ctx, userID)
}

// nextEmployeeCode computes PREFIX-YEAR-NNN from the highest numeric
// suffix already assigned under the prefix. The locking read keeps the
// max-plus-one assignment race-safe; it is only correct inside a
// transaction, which is why the helper takes a *sql.Tx.
func nextEmployeeCode(ctx context.Context, tx *sql.Tx, prefix string) (string, error) {
	var maxSuffix uint64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING_INDEX(employee_code, '-', -1) AS UNSIGNED)), 0)
         FROM profiles WHERE employee_code LIKE CONCAT(?, '-%') FOR UPDATE`,
		prefix).Scan(&maxSuffix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, time.Now().UTC().Year(), maxSuffix+1), nil
}

// UpdatePassword replaces the password hash and sets or clears the
// temporary-password flag in one statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint64, passwordHash string, temporary bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The hash can legitimately collide on no-op updates, so verify
		// the identity row exists before calling this a miss.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return sql.ErrNoRows
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET temp_password = ? WHERE user_id = ?`, temporary, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateProfile edits the mutable display fields of a profile.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID uint64, fullName string, phone *string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE profiles SET full_name = ?, phone = ? WHERE user_id = ?`, fullName, phone, userID)
	return err
}

// IncrementTokens atomically adds delta to a profile's balance with a
// single UPDATE. This is the only way balances change; callers must
// never read-modify-write, and must not blindly retry after a timeout.
func (r *UserRepo) IncrementTokens(ctx context.Context, userID uint64, delta uint32) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE profiles SET total_tokens = total_tokens + ? WHERE user_id = ?`, delta, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 && delta > 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes an account and every row that references it, in
// dependency order, inside one transaction:
//
//  1. activity rows the user authored are removed;
//  2. activity rows that merely target the user keep their history with
//     the target nulled;
//  3. ledger rows for the user and for any task the user created or was
//     assigned are removed;
//  4. activity references to those tasks are nulled;
//  5. the tasks themselves are removed;
//  6. resolved_by references in password-reset requests are nulled;
//  7. the identity row is removed (profile and refresh tokens cascade).
func (r *UserRepo) DeleteCascade(ctx context.Context, userID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	steps := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM activity_log WHERE actor_id = ?`, []any{userID}},
		{`UPDATE activity_log SET target_user_id = NULL WHERE target_user_id = ?`, []any{userID}},
		{`DELETE FROM points_ledger WHERE user_id = ? OR task_id IN
            (SELECT id FROM tasks WHERE creator_id = ? OR assignee_id = ?)`, []any{userID, userID, userID}},
		{`UPDATE activity_log SET task_id = NULL WHERE task_id IN
            (SELECT id FROM tasks WHERE creator_id = ? OR assignee_id = ?)`, []any{userID, userID}},
		{`DELETE FROM tasks WHERE creator_id = ? OR assignee_id = ?`, []any{userID, userID}},
		{`UPDATE password_reset_requests SET resolved_by = NULL WHERE resolved_by = ?`, []any{userID}},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// Role returns just the role of an account, for guard checks that do
// not need the full row.
func (r *UserRepo) Role(ctx context.Context, userID uint64) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		`SELECT role FROM profiles WHERE user_id = ? LIMIT 1`, userID).Scan(&role)
	return role, err
}
