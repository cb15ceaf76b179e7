package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS avatars (
	avatar_id       TEXT PRIMARY KEY,
	conception_time TEXT,
	gestation_time  REAL NOT NULL,
	gestation_unit  INTEGER NOT NULL,
	child_count     INTEGER NOT NULL
);
`

// Store keeps one row per avatar. Store replaces every row inside a single
// transaction, so readers always see a whole save.
type Store struct {
	db *sql.DB
}

var _ ports.SaveStore = (*Store)(nil)

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("save path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open save database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create save schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (domain.SaveData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT avatar_id, conception_time, gestation_time, gestation_unit, child_count FROM avatars`)
	if err != nil {
		return domain.SaveData{}, fmt.Errorf("query avatars: %w", err)
	}
	defer rows.Close()

	data := domain.NewSaveData()
	for rows.Next() {
		var (
			id         string
			conception sql.NullString
			record     domain.ChildRecord
			unit       int
			count      int
		)
		if err := rows.Scan(&id, &conception, &record.GestationTime, &unit, &count); err != nil {
			return domain.SaveData{}, fmt.Errorf("scan avatar row: %w", err)
		}

		if conception.Valid {
			if parsed, err := time.Parse(time.RFC3339Nano, conception.String); err == nil {
				record.ConceptionTime = &parsed
			}
		}
		record.Unit = domain.UnitFromWire(unit)
		record.ChildCount = clampCount(count)
		record.Normalize()
		data.Put(domain.AvatarID(id), record)
	}
	if err := rows.Err(); err != nil {
		return domain.SaveData{}, fmt.Errorf("read avatar rows: %w", err)
	}

	return data, nil
}

func (s *Store) Store(ctx context.Context, data domain.SaveData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM avatars`); err != nil {
		return fmt.Errorf("clear avatars: %w", err)
	}

	for id, record := range data.Avatars {
		var conception sql.NullString
		if record.ConceptionTime != nil {
			conception = sql.NullString{String: record.ConceptionTime.Format(time.RFC3339Nano), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO avatars (avatar_id, conception_time, gestation_time, gestation_unit, child_count)
			VALUES (?, ?, ?, ?, ?)`,
			string(id), conception, record.GestationTime, int(record.Unit), int(record.ChildCount))
		if err != nil {
			return fmt.Errorf("insert avatar %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

func clampCount(count int) uint8 {
	switch {
	case count < 0:
		return 0
	case count > domain.MaxChildCount:
		return domain.MaxChildCount
	default:
		return uint8(count)
	}
}
