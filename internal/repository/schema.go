package repository

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT,
	started_at REAL NOT NULL,
	ended_at REAL,
	duration_sec REAL,
	state TEXT NOT NULL,
	created_at REAL NOT NULL,
	updated_at REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	speaker TEXT,
	timestamp REAL NOT NULL,
	created_at REAL NOT NULL,
	UNIQUE(session_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS summaries (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE REFERENCES sessions(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	key_points TEXT NOT NULL DEFAULT '[]',
	action_items TEXT NOT NULL DEFAULT '[]',
	topics TEXT NOT NULL DEFAULT '[]',
	created_at REAL NOT NULL
);
`
