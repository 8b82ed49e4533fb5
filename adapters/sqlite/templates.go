package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satriahrh/synapse/domain"
)

const templateColumns = `id, user_id, name, type, content, model, is_active, created_at`

func scanTemplate(row interface{ Scan(...any) error }) (*domain.PromptTemplate, error) {
	var t domain.PromptTemplate
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Type, &t.Content, &t.Model, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ActiveTemplate(ctx context.Context, userID int64, typ domain.TemplateType) (*domain.PromptTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates
		WHERE user_id = ? AND type = ? AND is_active = 1
		ORDER BY id DESC LIMIT 1`, userID, typ)
	t, err := scanTemplate(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active template: %w", err)
	}
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context, userID int64) ([]domain.PromptTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := []domain.PromptTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, userID, id int64) (*domain.PromptTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTemplate(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t *domain.PromptTemplate) error {
	t.CreatedAt = now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if t.IsActive {
			if err := deactivateSiblings(ctx, tx, t.UserID, t.Type, 0); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO prompt_templates (user_id, name, type, content, model, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Name, t.Type, t.Content, t.Model, t.IsActive, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
		t.ID, err = res.LastInsertId()
		return err
	})
}

// UpdateTemplate saves t; when t is active every other template of the same
// user and type is deactivated in the same transaction.
func (s *Store) UpdateTemplate(ctx context.Context, t *domain.PromptTemplate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if t.IsActive {
			if err := deactivateSiblings(ctx, tx, t.UserID, t.Type, t.ID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE prompt_templates SET name = ?, content = ?, model = ?, is_active = ?
			WHERE id = ? AND user_id = ?`,
			t.Name, t.Content, t.Model, t.IsActive, t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		return notFoundIfNone(res, "Template")
	})
}

func deactivateSiblings(ctx context.Context, tx *sql.Tx, userID int64, typ domain.TemplateType, keepID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE prompt_templates SET is_active = 0 WHERE user_id = ? AND type = ? AND id != ?`,
		userID, typ, keepID)
	if err != nil {
		return fmt.Errorf("deactivate templates: %w", err)
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return notFoundIfNone(res, "Template")
}
