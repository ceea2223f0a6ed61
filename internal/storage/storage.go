// storage задаёт контракты доступа к данным каталога и аутентификации.
//
// Реализации обязаны быть потокобезопасными: каждый метод — одна
// транзакционная операция над БД, без состояния между вызовами.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/автор/книга).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/ISBN/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
)

// ListParams — страничные параметры выборки.
//
// Page нумеруется с нуля; SortBy валидируется реализацией по белому списку
// колонок конкретной сущности, неизвестные значения заменяются дефолтом.
type ListParams struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Desc сообщает, запрошена ли сортировка по убыванию.
func (p ListParams) Desc() bool {
	return strings.EqualFold(p.SortDir, "desc")
}

// Offset возвращает смещение выборки.
func (p ListParams) Offset() int {
	if p.Page < 0 || p.Size <= 0 {
		return 0
	}

	return p.Page * p.Size
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя и заполняет user.ID.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// ExistsByUsername сообщает, занят ли username.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// ExistsByEmail сообщает, занят ли email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// ReplaceRefreshToken атомарно заменяет токен пользователя:
	// upsert по user_id гарантирует не более одного живого токена.
	// Коллизия значения токена (хэша) — ErrAlreadyExists.
	ReplaceRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RefreshTokenByUserID находит refresh-токен владельца.
	RefreshTokenByUserID(ctx context.Context, userID int64) (*models.RefreshToken, error)
	// DeleteRefreshTokenByHash удаляет токен по хэшу.
	// Возвращает false, если токена не было (идемпотентный signout).
	DeleteRefreshTokenByHash(ctx context.Context, hash string) (bool, error)
	// DeleteRefreshTokensByUserID удаляет все токены пользователя.
	DeleteRefreshTokensByUserID(ctx context.Context, userID int64) error
	// DeleteExpiredTokens удаляет все токены с expires_at < now.
	// Возвращает количество удалённых строк.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// AuthorStorage выполняет операции над авторами.
type AuthorStorage interface {
	// SaveAuthor создаёт автора и заполняет author.ID.
	SaveAuthor(ctx context.Context, author *models.Author) error
	// AuthorByID находит автора по ID.
	AuthorByID(ctx context.Context, id int64) (*models.Author, error)
	// UpdateAuthor обновляет существующего автора.
	UpdateAuthor(ctx context.Context, author *models.Author) error
	// DeleteAuthor удаляет автора по ID.
	DeleteAuthor(ctx context.Context, id int64) error
	// ListAuthors возвращает страницу авторов.
	ListAuthors(ctx context.Context, params ListParams) ([]models.Author, error)
	// SearchAuthors ищет по подстроке имени/фамилии (без учёта регистра).
	SearchAuthors(ctx context.Context, query string, params ListParams) ([]models.Author, error)
}

// BookStorage выполняет операции над книгами.
type BookStorage interface {
	// SaveBook создаёт книгу и заполняет book.ID. Дубликат ISBN — ErrAlreadyExists.
	SaveBook(ctx context.Context, book *models.Book) error
	// BookByID находит книгу по ID.
	BookByID(ctx context.Context, id int64) (*models.Book, error)
	// BookByISBN находит книгу по ISBN.
	BookByISBN(ctx context.Context, isbn string) (*models.Book, error)
	// UpdateBook обновляет существующую книгу.
	UpdateBook(ctx context.Context, book *models.Book) error
	// DeleteBook удаляет книгу по ID.
	DeleteBook(ctx context.Context, id int64) error
	// ListBooks возвращает страницу книг.
	ListBooks(ctx context.Context, params ListParams) ([]models.Book, error)
	// SearchBooks ищет по подстроке названия/ISBN/имени автора.
	SearchBooks(ctx context.Context, query string, params ListParams) ([]models.Book, error)
	// AvailableBooks возвращает книги с available_copies > 0.
	AvailableBooks(ctx context.Context) ([]models.Book, error)
	// BooksByAuthorID возвращает все книги автора.
	BooksByAuthorID(ctx context.Context, authorID int64) ([]models.Book, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	AuthorStorage
	BookStorage
	Close()
}
