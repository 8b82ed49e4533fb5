package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satriahrh/synapse/domain"
)

func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	c.CreatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (user_id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if c.Items == nil {
		c.Items = []domain.CollectionItem{}
	}
	return err
}

func (s *Store) ListCollections(ctx context.Context, userID int64) ([]domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, created_at FROM collections WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := []domain.Collection{}
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Items, err = s.items(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) GetCollection(ctx context.Context, userID, id int64) (*domain.Collection, error) {
	var c domain.Collection
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at FROM collections WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if c.Items, err = s.items(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) items(ctx context.Context, collectionID int64) ([]domain.CollectionItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection_id, paper_id, paper_title, paper_summary, added_at
		FROM collection_items WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]domain.CollectionItem, error) {
	out := []domain.CollectionItem{}
	for rows.Next() {
		var it domain.CollectionItem
		if err := rows.Scan(&it.ID, &it.CollectionID, &it.PaperID, &it.PaperTitle, &it.PaperSummary, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCollection(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM collection_items WHERE collection_id = ?`, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		return notFoundIfNone(res, "Collection")
	})
}

func (s *Store) AddItem(ctx context.Context, item *domain.CollectionItem) error {
	item.AddedAt = now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_items (collection_id, paper_id, paper_title, paper_summary, added_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.CollectionID, item.PaperID, item.PaperTitle, item.PaperSummary, item.AddedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (s *Store) RemoveItem(ctx context.Context, collectionID, itemID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_items WHERE id = ? AND collection_id = ?`, itemID, collectionID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return notFoundIfNone(res, "Item")
}

// ItemsByPaperIDs returns the user's saved items for paperIDs, one per
// paper, in the order the ids were given.
func (s *Store) ItemsByPaperIDs(ctx context.Context, userID int64, paperIDs []string) ([]domain.CollectionItem, error) {
	if len(paperIDs) == 0 {
		return []domain.CollectionItem{}, nil
	}
	args := make([]any, 0, len(paperIDs)+1)
	args = append(args, userID)
	for _, id := range paperIDs {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paperIDs)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.collection_id, i.paper_id, i.paper_title, i.paper_summary, i.added_at
		FROM collection_items i JOIN collections c ON c.id = i.collection_id
		WHERE c.user_id = ? AND i.paper_id IN (`+placeholders+`)
		ORDER BY i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("items by paper: %w", err)
	}
	defer rows.Close()
	found, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	byPaper := make(map[string]domain.CollectionItem, len(found))
	for _, it := range found {
		if _, ok := byPaper[it.PaperID]; !ok {
			byPaper[it.PaperID] = it
		}
	}
	out := make([]domain.CollectionItem, 0, len(byPaper))
	for _, id := range paperIDs {
		if it, ok := byPaper[id]; ok {
			out = append(out, it)
			delete(byPaper, id)
		}
	}
	return out, nil
}
