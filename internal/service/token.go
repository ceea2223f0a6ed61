package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-library-catalog/internal/cache"
	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// generateAccessToken генерирует access-токен.
//
// Токен — stateless: сервер не хранит его и не может отозвать до истечения
// TTL; вся семантика отзыва лежит на refresh-токенах.
func (s *Service) generateAccessToken(ctx context.Context, username string, role models.Role, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	lg := log.From(ctx)

	claims := accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken валидирует access-токен и возвращает subject и роль.
func (s *Service) validateAccessToken(tokenStr string) (string, models.Role, error) {
	const op = "service.token.validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return "", "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Subject == "" {
		return "", "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.Subject, models.Role(claims.Role), nil
}

// hashToken возвращает base64url(sha256(plain)) — форму хранения токена в БД.
func hashToken(plain string) string {
	hashBytes := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

// issueRefreshToken выпускает новый refresh-токен для пользователя.
//
// Это единственная точка выпуска: atomic upsert по user_id заменяет прежний
// токен пользователя, чем и обеспечивается инвариант "один живой токен".
// Коллизия хэша значения перегенерируется ограниченным числом попыток.
func (s *Service) issueRefreshToken(ctx context.Context, userID int64) (string, error) {
	const (
		op          = "service.token.issueRefreshToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	// Кэш: инвалидируем запись прежнего токена, который upsert заменит.
	if s.rcache != nil {
		if old, err := s.storage.RefreshTokenByUserID(ctx, userID); err == nil {
			if cerr := s.rcache.Del(ctx, old.TokenHash); cerr != nil {
				lg.Warn("refresh_cache_del_failed",
					slog.String("op", op),
					slog.String("err", cerr.Error()),
				)
			}
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		plain := uuid.NewString()
		hash := hashToken(plain)

		now := time.Now().UTC()
		token := &models.RefreshToken{
			UserID:    userID,
			TokenHash: hash,
			ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.storage.ReplaceRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}
			if errors.Is(err, storage.ErrNotFound) {
				return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}

		if s.rcache != nil {
			entry := &cache.RefreshEntry{UserID: userID, ExpiresAt: token.ExpiresAt}
			if cerr := s.rcache.Set(ctx, hash, entry, s.cfg.RefreshTokenTTL); cerr != nil {
				lg.Warn("refresh_cache_set_failed",
					slog.String("op", op),
					slog.String("err", cerr.Error()),
				)
			}
		}

		return plain, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// lookupRefreshToken находит refresh-токен по открытому значению.
// Чистое чтение без проверки срока; отсутствие — ErrRefreshTokenNotFound.
//
// Решение "жив ли токен" принимает только БД. Записью из кэша подтверждать
// токен нельзя: best-effort Del при ротации/выходе мог не пройти, и кэш
// держал бы уже отозванный хэш. Кэш здесь лишь сверяется с БД, и расхождение
// (запись есть, строки нет) чинится удалением записи.
func (s *Service) lookupRefreshToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	const op = "service.token.lookupRefreshToken"

	lg := log.From(ctx)
	hash := hashToken(plain)

	cached := false
	if s.rcache != nil {
		_, cached, _ = s.rcache.Get(ctx, hash)
	}

	token, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if cached {
				s.dropCached(ctx, hash)
			}

			lg.Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotFound)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// verifyNotExpired проверяет срок действия refresh-токена.
// Просроченный токен удаляется из хранилища на месте (verify-and-reap):
// сборка мусора ленивая, по факту касания.
func (s *Service) verifyNotExpired(ctx context.Context, token *models.RefreshToken) error {
	const op = "service.token.verifyNotExpired"

	lg := log.From(ctx)

	if !token.Expired(time.Now().UTC()) {
		return nil
	}

	if _, err := s.storage.DeleteRefreshTokenByHash(ctx, token.TokenHash); err != nil {
		lg.Error("refresh_reap_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
	s.dropCached(ctx, token.TokenHash)

	lg.Warn("refresh_expired",
		slog.String("op", op),
		slog.Int64("user_id", token.UserID),
	)

	return fmt.Errorf("%s: %w", op, ErrRefreshTokenExpired)
}

// dropCached — best-effort удаление записи из кэша.
func (s *Service) dropCached(ctx context.Context, hash string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.Del(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_del_failed",
			slog.String("err", err.Error()),
		)
	}
}

// SweepExpired удаляет все просроченные refresh-токены.
// Предназначен для периодического фонового запуска вне пути запроса.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	const op = "service.token.SweepExpired"

	removed, err := s.storage.DeleteExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return removed, nil
}
