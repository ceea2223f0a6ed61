package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// Белый список колонок сортировки книг. Префикс b. — из-за JOIN c authors.
var bookSortColumns = map[string]string{
	"id":               "b.id",
	"title":            "b.title",
	"isbn":             "b.isbn",
	"publicationYear":  "b.publication_year",
	"publication_year": "b.publication_year",
	"createdAt":        "b.created_at",
	"created_at":       "b.created_at",
}

const bookColumns = `
	b.id, b.title, b.isbn, b.description, b.publication_year,
	b.available_copies, b.total_copies, b.author_id,
	a.first_name || ' ' || a.last_name,
	b.created_at, b.updated_at
`

// SaveBook создаёт книгу в БД и заполняет book.ID.
func (s *Storage) SaveBook(ctx context.Context, book *models.Book) error {
	const op = "storage.postgres.SaveBook"

	query := `
		INSERT INTO books(title, isbn, description, publication_year, available_copies, total_copies, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		book.Title,
		book.ISBN,
		book.Description,
		book.PublicationYear,
		book.AvailableCopies,
		book.TotalCopies,
		book.AuthorID,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID)

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

// BookByID находит книгу по ID.
func (s *Storage) BookByID(ctx context.Context, id int64) (*models.Book, error) {
	const op = "storage.postgres.BookByID"

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.id = $1
	`, bookColumns)

	book, err := scanBook(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return book, nil
}

// BookByISBN находит книгу по ISBN.
func (s *Storage) BookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	const op = "storage.postgres.BookByISBN"

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.isbn = $1
	`, bookColumns)

	book, err := scanBook(s.db.QueryRow(ctx, query, isbn))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return book, nil
}

// UpdateBook обновляет существующую книгу.
func (s *Storage) UpdateBook(ctx context.Context, book *models.Book) error {
	const op = "storage.postgres.UpdateBook"

	query := `
		UPDATE books
		SET title = $2, isbn = $3, description = $4, publication_year = $5,
		    available_copies = $6, total_copies = $7, author_id = $8, updated_at = $9
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query,
		book.ID,
		book.Title,
		book.ISBN,
		book.Description,
		book.PublicationYear,
		book.AvailableCopies,
		book.TotalCopies,
		book.AuthorID,
		book.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteBook удаляет книгу по ID.
func (s *Storage) DeleteBook(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteBook"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListBooks возвращает страницу книг.
func (s *Storage) ListBooks(ctx context.Context, params storage.ListParams) ([]models.Book, error) {
	const op = "storage.postgres.ListBooks"

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		ORDER BY %s
		LIMIT $1 OFFSET $2
	`, bookColumns, orderBy(params.SortBy, bookSortColumns, "b.id", params.Desc()))

	rows, err := s.db.Query(ctx, query, params.Size, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// SearchBooks ищет книги по подстроке названия/ISBN/имени автора.
func (s *Storage) SearchBooks(ctx context.Context, query string, params storage.ListParams) ([]models.Book, error) {
	const op = "storage.postgres.SearchBooks"

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.title ILIKE '%%' || $1 || '%%'
		   OR b.isbn ILIKE '%%' || $1 || '%%'
		   OR a.first_name ILIKE '%%' || $1 || '%%'
		   OR a.last_name ILIKE '%%' || $1 || '%%'
		ORDER BY %s
		LIMIT $2 OFFSET $3
	`, bookColumns, orderBy(params.SortBy, bookSortColumns, "b.title", params.Desc()))

	rows, err := s.db.Query(ctx, sqlQuery, query, params.Size, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// AvailableBooks возвращает книги с доступными экземплярами.
func (s *Storage) AvailableBooks(ctx context.Context) ([]models.Book, error) {
	const op = "storage.postgres.AvailableBooks"

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.available_copies > 0
		ORDER BY b.title ASC
	`, bookColumns)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// BooksByAuthorID возвращает все книги автора.
func (s *Storage) BooksByAuthorID(ctx context.Context, authorID int64) ([]models.Book, error) {
	const op = "storage.postgres.BooksByAuthorID"

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.author_id = $1
		ORDER BY b.title ASC
	`, bookColumns)

	rows, err := s.db.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

func scanBook(row pgx.Row) (*models.Book, error) {
	var book models.Book
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.ISBN,
		&book.Description,
		&book.PublicationYear,
		&book.AvailableCopies,
		&book.TotalCopies,
		&book.AuthorID,
		&book.AuthorName,
		&book.CreatedAt,
		&book.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return &book, nil
}

func collectBooks(rows pgx.Rows) ([]models.Book, error) {
	var books []models.Book
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.ISBN,
			&book.Description,
			&book.PublicationYear,
			&book.AvailableCopies,
			&book.TotalCopies,
			&book.AuthorID,
			&book.AuthorName,
			&book.CreatedAt,
			&book.UpdatedAt,
		); err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return books, nil
}
