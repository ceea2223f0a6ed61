package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-library-catalog/internal/pkg/redact"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// SignUpParams — данные регистрации нового пользователя.
type SignUpParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignIn выполняет вход по username+пароль.
//
// Единственный путь, создающий refresh-токен "с нуля"; любой прежний токен
// пользователя при этом атомарно заменяется.
func (s *Service) SignIn(ctx context.Context, username, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.SignIn"

	lg := log.From(ctx)

	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Enabled {
		lg.Warn("signin_disabled_account",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user, nil
}

// SignUp регистрирует нового пользователя.
//
// Конфликты проверяются в фиксированном порядке: сначала username, затем
// email. Токены при регистрации не выпускаются — только вход выдаёт пару.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.User, error) {
	const op = "service.auth.SignUp"

	taken, err := s.storage.ExistsByUsername(ctx, params.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	}

	taken, err = s.storage.ExistsByEmail(ctx, strings.ToLower(params.Email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}

	hashedPassword, err := hashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Username:     params.Username,
		Email:        strings.ToLower(params.Email),
		PasswordHash: hashedPassword,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Role:         models.RoleUser,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Гонка с параллельной регистрацией: уникальность добила БД.
			return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Refresh обновляет пару токенов по refresh-токену.
//
// lookup → проверка срока (с ленивым удалением) → ротация: upsert по user_id
// атомарно замещает старый токен; прежнее значение мертво при любом исходе.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	token, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.verifyNotExpired(ctx, token); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// SignOut удаляет refresh-токен из хранилища.
// Идемпотентен: отсутствие токена — не ошибка.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	const op = "service.auth.SignOut"

	hash := hashToken(refreshToken)

	if _, err := s.storage.DeleteRefreshTokenByHash(ctx, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.dropCached(ctx, hash)

	return nil
}

// RevokeUserSessions удаляет все refresh-токены пользователя
// (logout-everywhere при блокировке/деактивации аккаунта).
func (s *Service) RevokeUserSessions(ctx context.Context, userID int64) error {
	const op = "service.auth.RevokeUserSessions"

	if s.rcache != nil {
		if old, err := s.storage.RefreshTokenByUserID(ctx, userID); err == nil {
			s.dropCached(ctx, old.TokenHash)
		}
	}

	if err := s.storage.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Authenticate проверяет access-токен и разрешает личность запроса.
//
// После криптографической проверки аккаунт перечитывается из хранилища:
// отключённый или удалённый пользователь отвергается, даже если токен
// формально ещё жив (stateless-токены не отзываются — это известная щель,
// которую сужает короткий TTL и эта повторная проверка).
func (s *Service) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	const op = "service.auth.Authenticate"

	username, _, err := s.validateAccessToken(accessToken)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return models.Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Enabled {
		return models.Principal{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return models.Principal{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Enabled:  user.Enabled,
	}, nil
}

// issueTokenPair выпускает новую пару access+refresh токенов.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user.Username, user.Role, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plain, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    plain,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
