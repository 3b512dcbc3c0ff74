package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/desertthunder/clouder/internal/models"
)

const (
	tokensTable = "session_tokens"
	tokensRowID = 1
)

// TokenRepository implements session.TokenStore on the session_tokens table.
type TokenRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, now: time.Now}
}

// Load returns the stored tokens, or the zero session when none are stored.
func (r *TokenRepository) Load(ctx context.Context) (models.Session, error) {
	query, args, err := sq.Select("access_token", "refresh_token").
		From(tokensTable).
		Where(sq.Eq{"id": tokensRowID}).
		ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to build query: %w", err)
	}

	var tokens models.Session
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&tokens.AccessToken, &tokens.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query tokens: %w", err)
	}

	return tokens, nil
}

// Save upserts both tokens in one statement.
func (r *TokenRepository) Save(ctx context.Context, tokens models.Session) error {
	query, args, err := sq.Insert(tokensTable).
		Columns("id", "access_token", "refresh_token", "updated_at").
		Values(tokensRowID, tokens.AccessToken, tokens.RefreshToken, r.now().UTC()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// Clear deletes the stored tokens. Clearing an empty store is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	query, args, err := sq.Delete(tokensTable).Where(sq.Eq{"id": tokensRowID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
