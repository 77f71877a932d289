package relational

import "context"

// initSchema creates the normalized tables and indexes if absent,
// grounded on the teacher's initSchema (CREATE TABLE IF NOT EXISTS, one
// statement per Exec) but redesigned around spec.md §4.6's schema instead
// of one JSONB blob column per resource.
func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.ddl() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ddl() []string {
	if s.driver == DriverSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				external_id TEXT,
				locale TEXT,
				name TEXT,
				schemas TEXT NOT NULL,
				username TEXT NOT NULL,
				username_ci TEXT NOT NULL,
				display_name TEXT,
				custom_attributes TEXT,
				password TEXT,
				active BOOLEAN NOT NULL DEFAULT 1
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_ci ON users(username_ci)`,
			`CREATE TABLE IF NOT EXISTS groups (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				display_name_ci TEXT NOT NULL,
				schemas TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_display_name_ci ON groups(display_name_ci)`,
			`CREATE TABLE IF NOT EXISTS users_groups (
				user_id TEXT NOT NULL,
				group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
				PRIMARY KEY (user_id, group_id)
			)`,
			`CREATE TABLE IF NOT EXISTS user_emails (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				value TEXT NOT NULL,
				is_primary BOOLEAN NOT NULL DEFAULT 1,
				type TEXT NOT NULL DEFAULT 'work'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_emails_value ON user_emails(value)`,
			`CREATE INDEX IF NOT EXISTS idx_user_emails_user_id ON user_emails(user_id)`,
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			external_id TEXT,
			locale TEXT,
			name JSONB,
			schemas JSONB NOT NULL,
			username TEXT NOT NULL,
			username_ci TEXT NOT NULL,
			display_name TEXT,
			custom_attributes JSONB,
			password TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_ci ON users(username_ci)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			display_name_ci TEXT NOT NULL,
			schemas JSONB NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_display_name_ci ON groups(display_name_ci)`,
		`CREATE TABLE IF NOT EXISTS users_groups (
			user_id TEXT NOT NULL,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, group_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_emails (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			value TEXT NOT NULL,
			is_primary BOOLEAN NOT NULL DEFAULT TRUE,
			type TEXT NOT NULL DEFAULT 'work'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_emails_value ON user_emails(value)`,
		`CREATE INDEX IF NOT EXISTS idx_user_emails_user_id ON user_emails(user_id)`,
	}
}
