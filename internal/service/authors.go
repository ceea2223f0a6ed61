package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// clampListParams нормализует страничные параметры.
func clampListParams(params storage.ListParams) storage.ListParams {
	if params.Page < 0 {
		params.Page = 0
	}
	if params.Size <= 0 {
		params.Size = defaultPageSize
	}
	if params.Size > maxPageSize {
		params.Size = maxPageSize
	}

	return params
}

// CreateAuthor создаёт автора; заполняет ID и таймстемпы.
func (s *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	const op = "service.authors.CreateAuthor"

	now := time.Now().UTC()
	author.CreatedAt = now
	author.UpdatedAt = now

	if err := s.storage.SaveAuthor(ctx, author); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuthorByID находит автора по ID.
func (s *Service) AuthorByID(ctx context.Context, id int64) (*models.Author, error) {
	const op = "service.authors.AuthorByID"

	author, err := s.storage.AuthorByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return author, nil
}

// UpdateAuthor обновляет данные автора.
func (s *Service) UpdateAuthor(ctx context.Context, author *models.Author) error {
	const op = "service.authors.UpdateAuthor"

	author.UpdatedAt = time.Now().UTC()

	if err := s.storage.UpdateAuthor(ctx, author); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteAuthor удаляет автора по ID.
func (s *Service) DeleteAuthor(ctx context.Context, id int64) error {
	const op = "service.authors.DeleteAuthor"

	if err := s.storage.DeleteAuthor(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAuthorNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListAuthors возвращает страницу авторов.
func (s *Service) ListAuthors(ctx context.Context, params storage.ListParams) ([]models.Author, error) {
	const op = "service.authors.ListAuthors"

	authors, err := s.storage.ListAuthors(ctx, clampListParams(params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return authors, nil
}

// SearchAuthors ищет авторов по подстроке имени/фамилии.
func (s *Service) SearchAuthors(ctx context.Context, query string, params storage.ListParams) ([]models.Author, error) {
	const op = "service.authors.SearchAuthors"

	authors, err := s.storage.SearchAuthors(ctx, query, clampListParams(params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return authors, nil
}
