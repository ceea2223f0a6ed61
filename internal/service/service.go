// service содержит бизнес-логику каталога:
// аутентификацию пользователей, выпуск/проверку токенов, жизненный цикл
// refresh-токенов и CRUD-операции над авторами и книгами через интерфейсы
// из пакета storage.
//
// Основные аспекты:
//   - Экземпляр Service не хранит состояние запроса и безопасен для
//     конкурентного использования из разных горутин при условии, что
//     переданное хранилище (storage.Storage) потокобезопасно.
//   - Инвариант "не более одного живого refresh-токена на пользователя"
//     обеспечивается атомарным upsert-ом по user_id на уровне БД, а не
//     последовательностью delete+insert в коде.
//   - Ошибки возвращаются наружу и маппятся HTTP-слоем на статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-library-catalog/internal/cache"
	"github.com/pribylovaa/go-library-catalog/internal/config"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, пользователь не найден
	// или аккаунт отключён. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — access-токен некорректен по формату/подписи
	// или личность из него не удаётся разрешить. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrUsernameTaken — username уже занят другим пользователем. HTTP 400.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 400.
	ErrEmailTaken = errors.New("email already in use")

	// ErrUserNotFound — пользователь отсутствует в хранилище. HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrRefreshTokenNotFound — предъявленный refresh-токен отсутствует
	// в хранилище. HTTP 403.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrRefreshTokenExpired — refresh-токен просрочен; при обнаружении
	// он удаляется из хранилища (verify-and-reap). HTTP 403.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальное
	// значение refresh-токена (крайне редкие коллизии хэша). HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrAuthorNotFound — автор не найден. HTTP 404.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrBookNotFound — книга не найдена. HTTP 404.
	ErrBookNotFound = errors.New("book not found")

	// ErrISBNTaken — книга с таким ISBN уже существует. HTTP 409.
	ErrISBNTaken = errors.New("isbn already exists")
)

// Service описывает бизнес-логику сервиса каталога.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
