package entdriver

import "entgo.io/ent/dialect"

const (
	tableQueries = "user_queries"
	tableLeads   = "leads"
)

var queryColumns = []string{
	"id", "user_id", "username", "query_text", "response_text",
	"category", "confidence", "action", "timestamp", "is_lead",
}

var leadColumns = []string{
	"id", "name", "email", "phone", "industry", "telegram_username", "user_id", "created_at",
}

// schema returns the DDL for dialect. Statements are idempotent.
func schema(name string) []string {
	serial, real, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL", "DATETIME"
	if name == dialect.Postgres {
		serial, real, ts = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION", "TIMESTAMPTZ"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS user_queries (
			id ` + serial + `,
			user_id BIGINT NOT NULL DEFAULT 0,
			username TEXT NOT NULL DEFAULT '',
			query_text TEXT NOT NULL,
			response_text TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			confidence ` + real + ` NOT NULL DEFAULT 0,
			action TEXT NOT NULL DEFAULT '',
			"timestamp" ` + ts + ` NOT NULL,
			is_lead BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS user_queries_user_id ON user_queries (user_id)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id ` + serial + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			telegram_username TEXT NOT NULL DEFAULT '',
			user_id BIGINT NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL
		)`,
	}
}
