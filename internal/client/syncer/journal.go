package syncer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/plugsync/internal/db"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS file_records (
    path TEXT PRIMARY KEY,
    last_synced_at INTEGER NOT NULL, -- unix nanos, full mtime precision
    remote_ref TEXT NOT NULL,
    content_ref TEXT NOT NULL DEFAULT '',
    synced_at INTEGER NOT NULL
);
`

type journalRow struct {
	Path         string `db:"path"`
	LastSyncedAt int64  `db:"last_synced_at"`
	RemoteRef    string `db:"remote_ref"`
	ContentRef   string `db:"content_ref"`
	SyncedAt     int64  `db:"synced_at"`
}

func (r journalRow) record() *FileRecord {
	return &FileRecord{
		Path:         r.Path,
		LastSyncedAt: time.Unix(0, r.LastSyncedAt),
		RemoteRef:    r.RemoteRef,
		ContentRef:   r.ContentRef,
		SyncedAt:     time.Unix(0, r.SyncedAt),
	}
}

// SyncJournal is a RecordStore backed by SQLite. With it the tracker survives
// restarts and already synced files are not sent again.
type SyncJournal struct {
	db   *sqlx.DB
	path string
}

func NewSyncJournal(path string) (*SyncJournal, error) {
	conn, err := db.NewSqliteDB(db.WithPath(path), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open sync journal: %w", err)
	}

	if _, err := conn.Exec(journalSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init sync journal schema: %w", err)
	}

	slog.Debug("sync journal open", "path", path)
	return &SyncJournal{db: conn, path: path}, nil
}

func (j *SyncJournal) LoadAll() ([]*FileRecord, error) {
	var rows []journalRow
	if err := j.db.Select(&rows, "SELECT path, last_synced_at, remote_ref, content_ref, synced_at FROM file_records"); err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}

	records := make([]*FileRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (j *SyncJournal) Save(record *FileRecord) error {
	row := journalRow{
		Path:         record.Path,
		LastSyncedAt: record.LastSyncedAt.UnixNano(),
		RemoteRef:    record.RemoteRef,
		ContentRef:   record.ContentRef,
		SyncedAt:     record.SyncedAt.UnixNano(),
	}

	_, err := j.db.NamedExec(`INSERT OR REPLACE INTO file_records (path, last_synced_at, remote_ref, content_ref, synced_at)
		VALUES (:path, :last_synced_at, :remote_ref, :content_ref, :synced_at)`, row)
	if err != nil {
		return fmt.Errorf("save record %s: %w", record.Path, err)
	}
	return nil
}

func (j *SyncJournal) Count() (int, error) {
	var n int
	if err := j.db.Get(&n, "SELECT COUNT(*) FROM file_records"); err != nil {
		return 0, fmt.Errorf("count file records: %w", err)
	}
	return n, nil
}

func (j *SyncJournal) Path() string {
	return j.path
}

func (j *SyncJournal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close sync journal: %w", err)
	}
	return nil
}
