package pgstore

// schemaStatements is the shared logical schema expressed with native
// Postgres types: UUID primary keys, BOOLEAN, TIMESTAMPTZ. Each
// statement is safe to re-run.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (lower(username))`,

	`CREATE TABLE IF NOT EXISTS projects (
		id            UUID PRIMARY KEY,
		owner_user_id UUID NOT NULL REFERENCES users(id),
		name          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_user_id)`,

	`CREATE TABLE IF NOT EXISTS environments (
		id          UUID PRIMARY KEY,
		project_id  UUID NOT NULL REFERENCES projects(id),
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_environments_project_name ON environments (project_id, name)`,

	`CREATE TABLE IF NOT EXISTS flags (
		id          UUID PRIMARY KEY,
		project_id  UUID NOT NULL REFERENCES projects(id),
		key         TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_project_key ON flags (project_id, key)`,
	`CREATE INDEX IF NOT EXISTS idx_flags_project ON flags (project_id)`,

	`CREATE TABLE IF NOT EXISTS flag_values (
		flag_id            UUID NOT NULL REFERENCES flags(id),
		environment_id     UUID NOT NULL REFERENCES environments(id),
		enabled            BOOLEAN NOT NULL,
		rollout_percentage INTEGER NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (flag_id, environment_id)
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id             UUID PRIMARY KEY,
		secret_hash    TEXT NOT NULL,
		prefix         TEXT NOT NULL,
		kind           TEXT NOT NULL,
		project_id     UUID NOT NULL REFERENCES projects(id),
		environment_id UUID REFERENCES environments(id),
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys (secret_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_project ON api_keys (project_id)`,
}
