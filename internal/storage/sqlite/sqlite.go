package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/event"
	"github.com/meszmate/stanzaroute/internal/logging"
)

// DB is the on-disk event journal
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one journaled event
type Entry struct {
	ID        string
	Name      string
	Sender    string
	Recipient string
	StanzaID  string
	Payload   json.RawMessage
	Timestamp time.Time
}

// New opens (or creates) the journal inside dataDir
func New(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(filepath.Join(dataDir, "stanzaroute.db"))
}

// Open opens the journal at an explicit path
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &DB{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			stanza_id TEXT,
			payload TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_name ON events(name)`,
		`CREATE INDEX IF NOT EXISTS idx_events_sender ON events(sender)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS contact_last_presence (
			contact_jid TEXT PRIMARY KEY,
			available INTEGER NOT NULL,
			their_show TEXT,
			their_status_msg TEXT,
			last_updated INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS app_state (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Attach journals every event emitted on b. Disco requests are recorded
// without their result slot.
func (d *DB) Attach(b *bus.EventBus, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}
	log := logger.Named("journal")

	b.SubscribeAll(func(n bus.Notification) {
		if n.Payload == nil {
			return
		}
		if err := d.Record(n.Payload); err != nil {
			log.Error("failed to record %s: %v", n.Name, err)
		}
		if p, ok := n.Payload.(event.PresenceAvailability); ok {
			if err := d.SaveContactLastPresence(p); err != nil {
				log.Error("failed to save last presence: %v", err)
			}
		}
	})
}

// Record stores a single event
func (d *DB) Record(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	sender, recipient, stanzaID := addressing(ev)
	_, err = d.db.Exec(`
		INSERT INTO events (id, name, sender, recipient, stanza_id, payload, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), ev.Name(), sender, recipient, stanzaID, string(payload), d.now().UnixMilli())
	return err
}

func addressing(ev event.Event) (sender, recipient, stanzaID string) {
	switch e := ev.(type) {
	case event.DiscoInfoRequested:
		return e.Sender.String(), e.Target.String(), e.RequestID
	case event.DiscoItemsRequested:
		return e.Sender.String(), e.Target.String(), e.RequestID
	}
	if h, ok := ev.(interface{ Envelope() event.Header }); ok {
		header := h.Envelope()
		return header.Sender.String(), header.Recipient.String(), header.ID
	}
	return ev.From().String(), "", ""
}

// Recent returns the newest events, oldest first
func (d *DB) Recent(limit int) ([]Entry, error) {
	rows, err := d.db.Query(`
		SELECT id, name, sender, recipient, stanza_id, payload, timestamp
		FROM events
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ByName returns the newest events with the given name, oldest first
func (d *DB) ByName(name string, limit int) ([]Entry, error) {
	rows, err := d.db.Query(`
		SELECT id, name, sender, recipient, stanza_id, payload, timestamp
		FROM events
		WHERE name = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ts int64
		var stanzaID sql.NullString
		var payload string

		err := rows.Scan(&entry.ID, &entry.Name, &entry.Sender, &entry.Recipient, &stanzaID, &payload, &ts)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(ts)
		entry.Payload = json.RawMessage(payload)
		if stanzaID.Valid {
			entry.StanzaID = stanzaID.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Prune deletes events older than days; days <= 0 keeps everything
func (d *DB) Prune(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := d.now().AddDate(0, 0, -days).UnixMilli()
	result, err := d.db.Exec("DELETE FROM events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) Count() (int64, error) {
	var count int64
	err := d.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

func (d *DB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// LastPresence is the last availability seen for a bare JID
type LastPresence struct {
	Available   bool
	Show        string
	Status      string
	LastUpdated time.Time
}

func (d *DB) SaveContactLastPresence(p event.PresenceAvailability) error {
	available := 0
	if p.Available {
		available = 1
	}
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO contact_last_presence (contact_jid, available, their_show, their_status_msg, last_updated)
		VALUES (?, ?, ?, ?, ?)
	`, p.Sender.Bare().JID().String(), available, p.Show, p.Status(""), d.now().Unix())
	return err
}

// GetContactLastPresence returns nil when nothing was recorded for contactJID
func (d *DB) GetContactLastPresence(contactJID string) (*LastPresence, error) {
	var showNull, statusNull sql.NullString
	var available int
	var lastUpdatedUnix int64

	err := d.db.QueryRow(`
		SELECT available, their_show, their_status_msg, last_updated FROM contact_last_presence
		WHERE contact_jid = ?
	`, contactJID).Scan(&available, &showNull, &statusNull, &lastUpdatedUnix)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	presence := &LastPresence{
		Available:   available == 1,
		LastUpdated: time.Unix(lastUpdatedUnix, 0),
	}
	if showNull.Valid {
		presence.Show = showNull.String
	}
	if statusNull.Valid {
		presence.Status = statusNull.String
	}
	return presence, nil
}

func (d *DB) SetAppState(key, value string) error {
	_, err := d.db.Exec("INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)", key, value)
	return err
}

func (d *DB) GetAppState(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
