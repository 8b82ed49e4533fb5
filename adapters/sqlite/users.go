package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satriahrh/synapse/domain"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, profile domain.Profile) (*domain.User, error) {
	u := &domain.User{Email: email, PasswordHash: passwordHash, CreatedAt: now()}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, hashed_password, created_at) VALUES (?, ?, ?)`,
			u.Email, u.PasswordHash, u.CreatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return domain.ConflictError("Email already registered")
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		profile.UserID = u.ID
		return upsertProfile(ctx, tx, &profile)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE email = ?`, email)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, full_name, gemini_api_key, profile_image, preferred_model, onboarding_data
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.FullName, &p.GeminiAPIKey, &p.ProfileImage, &p.PreferredModel, &p.OnboardingData)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertProfile(ctx, tx, p)
	})
}

func upsertProfile(ctx context.Context, tx *sql.Tx, p *domain.Profile) error {
	if p.PreferredModel == "" {
		p.PreferredModel = domain.DefaultModel
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, gemini_api_key, profile_image, preferred_model, onboarding_data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			gemini_api_key = excluded.gemini_api_key,
			profile_image = excluded.profile_image,
			preferred_model = excluded.preferred_model,
			onboarding_data = excluded.onboarding_data`,
		p.UserID, p.FullName, p.GeminiAPIKey, p.ProfileImage, p.PreferredModel, p.OnboardingData)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) RecordPaperView(ctx context.Context, userID int64, paperID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_views (user_id, paper_id, viewed_at) VALUES (?, ?, ?)`,
		userID, paperID, now())
	if err != nil {
		return fmt.Errorf("record paper view: %w", err)
	}
	return nil
}

// PaperViews returns the paper ids the user viewed, newest first.
func (s *Store) PaperViews(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id FROM paper_views WHERE user_id = ? ORDER BY viewed_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list paper views: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
