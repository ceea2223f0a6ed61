package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// CreateBook создаёт книгу; автор обязан существовать, ISBN уникален.
func (s *Service) CreateBook(ctx context.Context, book *models.Book) error {
	const op = "service.books.CreateBook"

	author, err := s.storage.AuthorByID(ctx, book.AuthorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := s.storage.SaveBook(ctx, book); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%s: %w", op, ErrISBNTaken)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	book.AuthorName = author.FullName()

	return nil
}

// BookByID находит книгу по ID.
func (s *Service) BookByID(ctx context.Context, id int64) (*models.Book, error) {
	const op = "service.books.BookByID"

	book, err := s.storage.BookByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return book, nil
}

// BookByISBN находит книгу по ISBN.
func (s *Service) BookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	const op = "service.books.BookByISBN"

	book, err := s.storage.BookByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return book, nil
}

// UpdateBook обновляет данные книги; смена автора проверяется на существование.
func (s *Service) UpdateBook(ctx context.Context, book *models.Book) error {
	const op = "service.books.UpdateBook"

	if _, err := s.storage.AuthorByID(ctx, book.AuthorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	book.UpdatedAt = time.Now().UTC()

	if err := s.storage.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%s: %w", op, ErrISBNTaken)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrBookNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteBook удаляет книгу по ID.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	const op = "service.books.DeleteBook"

	if err := s.storage.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrBookNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListBooks возвращает страницу книг.
func (s *Service) ListBooks(ctx context.Context, params storage.ListParams) ([]models.Book, error) {
	const op = "service.books.ListBooks"

	books, err := s.storage.ListBooks(ctx, clampListParams(params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// SearchBooks ищет книги по подстроке названия/ISBN/имени автора.
func (s *Service) SearchBooks(ctx context.Context, query string, params storage.ListParams) ([]models.Book, error) {
	const op = "service.books.SearchBooks"

	books, err := s.storage.SearchBooks(ctx, query, clampListParams(params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// AvailableBooks возвращает книги с доступными экземплярами.
func (s *Service) AvailableBooks(ctx context.Context) ([]models.Book, error) {
	const op = "service.books.AvailableBooks"

	books, err := s.storage.AvailableBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// BooksByAuthor возвращает все книги автора (пустой список — не ошибка).
func (s *Service) BooksByAuthor(ctx context.Context, authorID int64) ([]models.Book, error) {
	const op = "service.books.BooksByAuthor"

	books, err := s.storage.BooksByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}
