package sqlitestore

// schemaStatements is the shared logical schema expressed with
// SQLite's integer-boolean and text-timestamp conventions. Each
// statement is safe to re-run (IF NOT EXISTS / idempotent index
// creation), matching RunMigrations' "applies idempotently at startup"
// contract.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (lower(username))`,

	`CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL REFERENCES users(id),
		name          TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_user_id)`,

	`CREATE TABLE IF NOT EXISTS environments (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id),
		name        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_environments_project_name ON environments (project_id, name)`,

	`CREATE TABLE IF NOT EXISTS flags (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id),
		key         TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_project_key ON flags (project_id, key)`,
	`CREATE INDEX IF NOT EXISTS idx_flags_project ON flags (project_id)`,

	`CREATE TABLE IF NOT EXISTS flag_values (
		flag_id            TEXT NOT NULL REFERENCES flags(id),
		environment_id     TEXT NOT NULL REFERENCES environments(id),
		enabled            INTEGER NOT NULL,
		rollout_percentage INTEGER NOT NULL,
		updated_at         TEXT NOT NULL,
		PRIMARY KEY (flag_id, environment_id)
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id             TEXT PRIMARY KEY,
		secret_hash    TEXT NOT NULL,
		prefix         TEXT NOT NULL,
		kind           TEXT NOT NULL,
		project_id     TEXT NOT NULL REFERENCES projects(id),
		environment_id TEXT REFERENCES environments(id),
		created_at     TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys (secret_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_project ON api_keys (project_id)`,
}
