package sqlite

// Schema DDL. Statements are idempotent so every Open can run them.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    key TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    minor_version INTEGER NOT NULL,
    data TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createRecordHistory = `CREATE TABLE IF NOT EXISTS record_history (
    history_id TEXT PRIMARY KEY,
    key TEXT NOT NULL,
    version INTEGER NOT NULL,
    data TEXT NOT NULL,
    replaced_at TEXT NOT NULL
);`
)

// Index DDL.
const (
	idxRecordHistoryKey = `CREATE INDEX IF NOT EXISTS idx_record_history_key ON record_history(key, history_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createRecords,
	createRecordHistory,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxRecordHistoryKey,
}
