package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// tsLayout is fixed width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// DraftStore implements ports.DraftStore with a SQLite table. Expired rows
// read as absent and are removed by Purge.
type DraftStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// StoredDraft is a row as listed by the CLI.
type StoredDraft struct {
	Key       string
	Draft     domain.Draft
	ExpiresAt *time.Time
}

// NewDraftStore creates a DraftStore. A non-positive ttl keeps drafts
// forever.
func NewDraftStore(db *sql.DB, ttl time.Duration) *DraftStore {
	return &DraftStore{db: db, ttl: ttl, now: time.Now}
}

func (s *DraftStore) Save(ctx context.Context, key string, draft domain.Draft) error {
	data, err := json.Marshal(draft.Data)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	var expires sql.NullString
	if s.ttl > 0 {
		expires = sql.NullString{String: s.now().UTC().Add(s.ttl).Format(tsLayout), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (key, data, saved_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET data = excluded.data, saved_at = excluded.saved_at, expires_at = excluded.expires_at`,
		key, string(data), draft.Timestamp.UTC().Format(tsLayout), expires,
	)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Load(ctx context.Context, key string) (*domain.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, data, saved_at, expires_at FROM drafts WHERE key = ?`, key)
	sd, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	if sd.ExpiresAt != nil && !s.now().Before(*sd.ExpiresAt) {
		return nil, nil
	}
	return &sd.Draft, nil
}

func (s *DraftStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}

// List returns every live draft ordered by key.
func (s *DraftStore) List(ctx context.Context) ([]StoredDraft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data, saved_at, expires_at FROM drafts
		 WHERE expires_at IS NULL OR expires_at > ?
		 ORDER BY key`, s.now().UTC().Format(tsLayout))
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var out []StoredDraft
	for rows.Next() {
		sd, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		out = append(out, *sd)
	}
	return out, rows.Err()
}

// Purge deletes expired drafts and returns how many were removed.
func (s *DraftStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("purging drafts: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(sc scanner) (*StoredDraft, error) {
	var (
		sd      StoredDraft
		data    string
		savedAt string
		expires sql.NullString
	)
	if err := sc.Scan(&sd.Key, &data, &savedAt, &expires); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sd.Draft.Data); err != nil {
		return nil, fmt.Errorf("decoding draft %s: %w", sd.Key, err)
	}
	ts, err := time.Parse(tsLayout, savedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing saved_at of %s: %w", sd.Key, err)
	}
	sd.Draft.Timestamp = ts
	if expires.Valid {
		exp, err := time.Parse(tsLayout, expires.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at of %s: %w", sd.Key, err)
		}
		sd.ExpiresAt = &exp
	}
	return &sd, nil
}
