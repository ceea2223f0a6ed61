package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// ReplaceRefreshToken атомарно заменяет refresh-токен пользователя.
//
// Один INSERT ... ON CONFLICT (user_id) — конкурентные sign-in/refresh
// для одного пользователя сериализуются на уровне БД и не могут оставить
// ни ноль, ни два живых токена. Коллизия token_hash (уникален глобально)
// маппится в ErrAlreadyExists, вызывающий код перегенерирует значение.
func (s *Storage) ReplaceRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.ReplaceRefreshToken"

	query := `
        INSERT INTO refresh_tokens(user_id, token_hash, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET token_hash = EXCLUDED.token_hash,
            expires_at = EXCLUDED.expires_at,
            updated_at = EXCLUDED.updated_at
        RETURNING id
    `

	err := s.db.QueryRow(ctx, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByHash находит refresh-токен по его хэшу.
func (s *Storage) RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByHash"

	query := `
        SELECT id, user_id, token_hash, expires_at, created_at, updated_at
        FROM refresh_tokens
        WHERE token_hash = $1
    `

	token, err := s.scanRefreshToken(s.db.QueryRow(ctx, query, hash))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// RefreshTokenByUserID находит refresh-токен владельца.
func (s *Storage) RefreshTokenByUserID(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByUserID"

	query := `
        SELECT id, user_id, token_hash, expires_at, created_at, updated_at
        FROM refresh_tokens
        WHERE user_id = $1
    `

	token, err := s.scanRefreshToken(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// DeleteRefreshTokenByHash удаляет токен по хэшу; false — токена не было.
func (s *Storage) DeleteRefreshTokenByHash(ctx context.Context, hash string) (bool, error) {
	const op = "storage.postgres.DeleteRefreshTokenByHash"

	cmdTag, err := s.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`, hash,
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// DeleteRefreshTokensByUserID удаляет все токены пользователя.
func (s *Storage) DeleteRefreshTokensByUserID(ctx context.Context, userID int64) error {
	const op = "storage.postgres.DeleteRefreshTokensByUserID"

	_, err := s.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredTokens удаляет все просроченные токены.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredTokens"

	cmdTag, err := s.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

func (s *Storage) scanRefreshToken(row pgx.Row) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return &token, nil
}
