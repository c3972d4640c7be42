package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"obra/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS worksheet_rows (
  project TEXT NOT NULL,
  tbl TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  data TEXT NOT NULL,
  PRIMARY KEY(project, tbl, rowNo)
);

CREATE TABLE IF NOT EXISTS worksheet_columns (
  project TEXT NOT NULL,
  tbl TEXT NOT NULL,
  columnsJson TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(project, tbl)
);

CREATE TABLE IF NOT EXISTS mail_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  kind TEXT NOT NULL,
  project TEXT,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// Load implements TableStore. A table that was never saved is empty.
func (d *DB) Load(ctx context.Context, project, table string) ([]Row, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT data FROM worksheet_rows WHERE project = ? AND tbl = ? ORDER BY rowNo ASC
`, project, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		row := Row{}
		if err := json.Unmarshal([]byte(blob), &row); err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Save implements TableStore by replacing every row of the table in one transaction.
func (d *DB) Save(ctx context.Context, project, table string, columns []string, rows []Row) error {
	return d.SaveTables(ctx, project, TableWrite{Table: table, Columns: columns, Rows: rows})
}

// SaveTables replaces several tables of a project in a single transaction.
func (d *DB) SaveTables(ctx context.Context, project string, writes ...TableWrite) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range writes {
		if err := replaceTable(ctx, tx, project, w); err != nil {
			return fmt.Errorf("%s: %w", w.Table, err)
		}
	}
	return tx.Commit()
}

func replaceTable(ctx context.Context, tx *sql.Tx, project string, w TableWrite) error {
	if w.Table == "" {
		return errors.New("empty table name")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM worksheet_rows WHERE project = ? AND tbl = ?`, project, w.Table); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO worksheet_rows (project, tbl, rowNo, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range w.Rows {
		blob, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, project, w.Table, i, string(blob)); err != nil {
			return err
		}
	}

	columnsJSON, _ := json.Marshal(w.Columns)
	_, err = tx.ExecContext(ctx, `
INSERT INTO worksheet_columns (project, tbl, columnsJson) VALUES (?, ?, ?)
ON CONFLICT(project, tbl) DO UPDATE SET columnsJson = excluded.columnsJson, updatedAt = CURRENT_TIMESTAMP
`, project, w.Table, string(columnsJSON))
	return err
}

// Projects lists every project that has at least one saved table.
func (d *DB) Projects(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT DISTINCT project FROM worksheet_columns ORDER BY project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) UpsertMail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.MailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO mail_messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.MailRow{}, err
	}

	row, err := d.GetMailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MailRow{}, err
	}
	if row == nil {
		return internal.MailRow{}, errors.New("failed to upsert mail message")
	}
	return *row, nil
}

func (d *DB) GetMailByProviderMessageID(provider, messageID string) (*internal.MailRow, error) {
	var row internal.MailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM mail_messages WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustMailByProviderMessageID(provider, messageID string) (internal.MailRow, error) {
	row, err := d.GetMailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MailRow{}, err
	}
	if row == nil {
		return internal.MailRow{}, fmt.Errorf("mail not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMailByStatus(status string, limit int) ([]internal.MailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM mail_messages WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MailRow
	for rows.Next() {
		var row internal.MailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMailStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE mail_messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

func (d *DB) InsertRun(traceID, kind, project string, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, kind, project, countsJson) VALUES (?, ?, ?, ?)`, traceID, kind, project, string(countsJSON))
	return err
}
