package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// Белый список колонок сортировки авторов.
var authorSortColumns = map[string]string{
	"id":         "id",
	"firstName":  "first_name",
	"first_name": "first_name",
	"lastName":   "last_name",
	"last_name":  "last_name",
	"birthYear":  "birth_year",
	"birth_year": "birth_year",
	"createdAt":  "created_at",
	"created_at": "created_at",
}

const authorColumns = `
	id, first_name, last_name, biography, birth_year,
	(SELECT COUNT(*) FROM books WHERE books.author_id = authors.id),
	created_at, updated_at
`

// SaveAuthor создаёт автора в БД и заполняет author.ID.
func (s *Storage) SaveAuthor(ctx context.Context, author *models.Author) error {
	const op = "storage.postgres.SaveAuthor"

	query := `
		INSERT INTO authors(first_name, last_name, biography, birth_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		author.FirstName,
		author.LastName,
		author.Biography,
		author.BirthYear,
		author.CreatedAt,
		author.UpdatedAt,
	).Scan(&author.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuthorByID находит автора по ID.
func (s *Storage) AuthorByID(ctx context.Context, id int64) (*models.Author, error) {
	const op = "storage.postgres.AuthorByID"

	query := fmt.Sprintf(`
		SELECT %s
		FROM authors
		WHERE id = $1
	`, authorColumns)

	author, err := scanAuthor(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return author, nil
}

// UpdateAuthor обновляет существующего автора.
func (s *Storage) UpdateAuthor(ctx context.Context, author *models.Author) error {
	const op = "storage.postgres.UpdateAuthor"

	query := `
		UPDATE authors
		SET first_name = $2, last_name = $3, biography = $4, birth_year = $5, updated_at = $6
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query,
		author.ID,
		author.FirstName,
		author.LastName,
		author.Biography,
		author.BirthYear,
		author.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteAuthor удаляет автора по ID (книги автора каскадируются).
func (s *Storage) DeleteAuthor(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteAuthor"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListAuthors возвращает страницу авторов.
func (s *Storage) ListAuthors(ctx context.Context, params storage.ListParams) ([]models.Author, error) {
	const op = "storage.postgres.ListAuthors"

	query := fmt.Sprintf(`
		SELECT %s
		FROM authors
		ORDER BY %s
		LIMIT $1 OFFSET $2
	`, authorColumns, orderBy(params.SortBy, authorSortColumns, "last_name", params.Desc()))

	rows, err := s.db.Query(ctx, query, params.Size, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	authors, err := collectAuthors(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return authors, nil
}

// SearchAuthors ищет авторов по подстроке имени/фамилии без учёта регистра.
func (s *Storage) SearchAuthors(ctx context.Context, query string, params storage.ListParams) ([]models.Author, error) {
	const op = "storage.postgres.SearchAuthors"

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM authors
		WHERE first_name ILIKE '%%' || $1 || '%%' OR last_name ILIKE '%%' || $1 || '%%'
		ORDER BY %s
		LIMIT $2 OFFSET $3
	`, authorColumns, orderBy(params.SortBy, authorSortColumns, "last_name", params.Desc()))

	rows, err := s.db.Query(ctx, sqlQuery, query, params.Size, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	authors, err := collectAuthors(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return authors, nil
}

func scanAuthor(row pgx.Row) (*models.Author, error) {
	var author models.Author
	err := row.Scan(
		&author.ID,
		&author.FirstName,
		&author.LastName,
		&author.Biography,
		&author.BirthYear,
		&author.BookCount,
		&author.CreatedAt,
		&author.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return &author, nil
}

func collectAuthors(rows pgx.Rows) ([]models.Author, error) {
	var authors []models.Author
	for rows.Next() {
		var author models.Author
		if err := rows.Scan(
			&author.ID,
			&author.FirstName,
			&author.LastName,
			&author.Biography,
			&author.BirthYear,
			&author.BookCount,
			&author.CreatedAt,
			&author.UpdatedAt,
		); err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return authors, nil
}
