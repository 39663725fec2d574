package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"note-enhancer/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const noteColumns = `id, user_id, title, content, pos_x, pos_y, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (domain.Note, error) {
	var n domain.Note
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Content,
		&n.Position.X,
		&n.Position.Y,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, domain.ErrNoteNotFound
		}
		return domain.Note{}, err
	}
	return n, nil
}

func (s *PostgresStore) CreateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, pos_x, pos_y)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+noteColumns,
		n.ID, n.UserID, n.Title, n.Content, n.Position.X, n.Position.Y)
	return scanNote(row)
}

func (s *PostgresStore) GetNote(ctx context.Context, userID, noteID string) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE id = $1 AND user_id = $2
	`, noteID, userID)
	return scanNote(row)
}

func (s *PostgresStore) ListNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, n domain.Note) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notes
		SET title = $3, content = $4, pos_x = $5, pos_y = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns,
		n.ID, n.UserID, n.Title, n.Content, n.Position.X, n.Position.Y)
	return scanNote(row)
}

func (s *PostgresStore) UpdateNotePosition(ctx context.Context, userID, noteID string, pos domain.Position) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notes
		SET pos_x = $3, pos_y = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns,
		noteID, userID, pos.X, pos.Y)
	return scanNote(row)
}

func (s *PostgresStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

// ApplyEnhancement swaps in newContent only while the note still holds the
// content that was enhanced. A note edited or deleted in between yields
// domain.ErrNoteChanged.
func (s *PostgresStore) ApplyEnhancement(ctx context.Context, noteID, enhancedFrom, newContent string) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notes
		SET content = $3, updated_at = NOW()
		WHERE id = $1 AND content = $2
		RETURNING `+noteColumns,
		noteID, enhancedFrom, newContent)
	n, err := scanNote(row)
	if errors.Is(err, domain.ErrNoteNotFound) {
		return domain.Note{}, domain.ErrNoteChanged
	}
	return n, err
}

func (s *PostgresStore) InsertEnhancement(ctx context.Context, rec domain.EnhancementRecord) error {
	rules := rec.Rules
	if rules == nil {
		rules = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enhancements (note_id, operation, outcome, detail, rules)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.NoteID, rec.Operation, rec.Outcome, rec.Detail, pq.Array(rules))
	return err
}

func (s *PostgresStore) ListEnhancements(ctx context.Context, noteID string) ([]domain.EnhancementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, operation, outcome, COALESCE(detail, ''), rules, created_at
		FROM enhancements
		WHERE note_id = $1
		ORDER BY created_at DESC, id DESC
	`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.EnhancementRecord, 0)
	for rows.Next() {
		var item domain.EnhancementRecord
		var rules []string
		if err := rows.Scan(&item.ID, &item.NoteID, &item.Operation, &item.Outcome, &item.Detail, pq.Array(&rules), &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Rules = rules
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
