package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satriahrh/synapse/domain"
)

func (s *Store) CreateSession(ctx context.Context, rec *domain.ChatSessionRecord) error {
	rec.CreatedAt = now()
	rec.UpdatedAt = rec.CreatedAt
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		rec.UserID, rec.Title, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	return err
}

// ListSessions returns the user's sessions, most recently active first,
// without messages.
func (s *Store) ListSessions(ctx context.Context, userID int64) ([]domain.ChatSessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions
		WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.ChatSessionRecord{}
	for rows.Next() {
		var r domain.ChatSessionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Messages = []domain.Turn{}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSession returns the session with its full transcript, oldest first.
func (s *Store) GetSession(ctx context.Context, userID, id int64) (*domain.ChatSessionRecord, error) {
	var r domain.ChatSessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&r.ID, &r.UserID, &r.Title, &r.CreatedAt, &r.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	if r.Messages, err = scanTurns(rows); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return notFoundIfNone(res, "Session")
	})
}

func (s *Store) TouchSession(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (s *Store) AppendMessage(ctx context.Context, t *domain.Turn) error {
	t.CreatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		t.SessionID, t.Role, t.Content, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func scanTurns(rows *sql.Rows) ([]domain.Turn, error) {
	out := []domain.Turn{}
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
