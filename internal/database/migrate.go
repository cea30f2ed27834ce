package database

import (
	"context"
	"database/sql"
)

// Migrate creates the application schema if it does not already exist.
// Statements are idempotent (CREATE TABLE IF NOT EXISTS) so the server
// can run this on every boot.  Foreign keys are declared with the
// cascade behavior the account-deletion path relies on: profiles and
// refresh tokens disappear with their identity row, ledger rows keep a
// nullable task reference, and activity rows null out task/target
// references rather than vanishing.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS profiles (
			user_id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
			employee_code VARCHAR(32) NOT NULL UNIQUE,
			full_name VARCHAR(255) NOT NULL,
			role ENUM('DIRECTOR','ADMIN','USER') NOT NULL,
			total_tokens INT UNSIGNED NOT NULL DEFAULT 0,
			temp_password TINYINT(1) NOT NULL DEFAULT 0,
			phone VARCHAR(32) NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_profiles_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64) NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			creator_id BIGINT UNSIGNED NOT NULL,
			assignee_id BIGINT UNSIGNED NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			deadline DATETIME NOT NULL,
			token_value INT UNSIGNED NOT NULL DEFAULT 0,
			status ENUM('PENDING','UNDER_REVIEW','COMPLETED','REJECTED') NOT NULL DEFAULT 'PENDING',
			director_approved TINYINT(1) NOT NULL DEFAULT 0,
			submitted_at DATETIME NULL,
			approved_at DATETIME NULL,
			submission_note TEXT NULL,
			admin_feedback TEXT NULL,
			original_deadline DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_tasks_assignee (assignee_id, director_approved),
			KEY idx_tasks_status (status),
			CONSTRAINT fk_tasks_creator FOREIGN KEY (creator_id) REFERENCES users(id),
			CONSTRAINT fk_tasks_assignee FOREIGN KEY (assignee_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS points_ledger (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			task_id BIGINT UNSIGNED NULL,
			tokens_awarded INT UNSIGNED NOT NULL,
			reason VARCHAR(512) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_ledger_user (user_id, created_at),
			CONSTRAINT fk_ledger_user FOREIGN KEY (user_id) REFERENCES users(id),
			CONSTRAINT fk_ledger_task FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			actor_id BIGINT UNSIGNED NOT NULL,
			action VARCHAR(40) NOT NULL,
			target_user_id BIGINT UNSIGNED NULL,
			task_id BIGINT UNSIGNED NULL,
			message VARCHAR(1024) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_activity_created (created_at),
			CONSTRAINT fk_activity_actor FOREIGN KEY (actor_id) REFERENCES users(id),
			CONSTRAINT fk_activity_target FOREIGN KEY (target_user_id) REFERENCES users(id) ON DELETE SET NULL,
			CONSTRAINT fk_activity_task FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS password_reset_requests (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			reference CHAR(36) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL,
			status ENUM('PENDING','APPROVED','DISMISSED') NOT NULL DEFAULT 'PENDING',
			resolved_by BIGINT UNSIGNED NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved_at DATETIME NULL,
			CONSTRAINT fk_reset_resolver FOREIGN KEY (resolved_by) REFERENCES users(id) ON DELETE SET NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
