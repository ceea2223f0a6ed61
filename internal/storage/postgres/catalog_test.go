package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// TestIntegration_Authors_CRUD — создание, чтение, обновление и удаление
// автора; book_count приходит из подзапроса.
func TestIntegration_Authors_CRUD(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mkAuthor(t, st, "Лев", "Толстой")

	got, err := st.AuthorByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Толстой", got.LastName)
	require.EqualValues(t, 0, got.BookCount)

	mkBook(t, st, a.ID, "Война и мир", "isbn-1", 3)
	mkBook(t, st, a.ID, "Анна Каренина", "isbn-2", 1)

	got, err = st.AuthorByID(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.BookCount)

	got.Biography = "Русский писатель"
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.UpdateAuthor(ctx, got))

	got, err = st.AuthorByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Русский писатель", got.Biography)

	// Удаление каскадом уносит книги автора.
	require.NoError(t, st.DeleteAuthor(ctx, a.ID))
	_, err = st.AuthorByID(ctx, a.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, st.DeleteAuthor(ctx, a.ID), storage.ErrNotFound)
}

// TestIntegration_Authors_ListAndSearch — страницы, сортировка по белому
// списку и регистронезависимый поиск.
func TestIntegration_Authors_ListAndSearch(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	mkAuthor(t, st, "Антон", "Чехов")
	mkAuthor(t, st, "Михаил", "Булгаков")
	mkAuthor(t, st, "Лев", "Толстой")

	authors, err := st.ListAuthors(ctx, storage.ListParams{Page: 0, Size: 10, SortBy: "lastName"})
	require.NoError(t, err)
	require.Len(t, authors, 3)
	require.Equal(t, "Булгаков", authors[0].LastName)

	// Неизвестная колонка сортировки заменяется дефолтом, а не ошибкой.
	authors, err = st.ListAuthors(ctx, storage.ListParams{Page: 0, Size: 10, SortBy: "evil; DROP TABLE authors"})
	require.NoError(t, err)
	require.Len(t, authors, 3)

	// Страницы.
	page, err := st.ListAuthors(ctx, storage.ListParams{Page: 1, Size: 2, SortBy: "lastName"})
	require.NoError(t, err)
	require.Len(t, page, 1)

	// Поиск по подстроке имени.
	found, err := st.SearchAuthors(ctx, "Миха", storage.ListParams{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Булгаков", found[0].LastName)
}

// TestIntegration_Books_CRUD — создание с FK на автора, чтение по id/ISBN,
// обновление, удаление; authorName приходит из JOIN.
func TestIntegration_Books_CRUD(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mkAuthor(t, st, "Михаил", "Булгаков")
	b := mkBook(t, st, a.ID, "Мастер и Маргарита", "isbn-mm", 2)

	got, err := st.BookByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Мастер и Маргарита", got.Title)
	require.Equal(t, "Михаил Булгаков", got.AuthorName)

	byISBN, err := st.BookByISBN(ctx, "isbn-mm")
	require.NoError(t, err)
	require.Equal(t, b.ID, byISBN.ID)

	got.Description = "Роман"
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.UpdateBook(ctx, got))

	got, err = st.BookByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Роман", got.Description)

	require.NoError(t, st.DeleteBook(ctx, b.ID))
	_, err = st.BookByID(ctx, b.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_Books_Constraints — дубликат ISBN и несуществующий автор.
func TestIntegration_Books_Constraints(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	a := mkAuthor(t, st, "Антон", "Чехов")
	mkBook(t, st, a.ID, "Палата №6", "isbn-dup", 1)

	now := time.Now().UTC()
	dup := &models.Book{Title: "Другая", ISBN: "isbn-dup", AuthorID: a.ID, CreatedAt: now, UpdatedAt: now}
	err := st.SaveBook(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	orphan := &models.Book{Title: "Сирота", ISBN: "isbn-orphan", AuthorID: 424242, CreatedAt: now, UpdatedAt: now}
	err = st.SaveBook(ctx, orphan)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_Books_Queries — поиск, доступные экземпляры, книги автора.
func TestIntegration_Books_Queries(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	tolstoy := mkAuthor(t, st, "Лев", "Толстой")
	chekhov := mkAuthor(t, st, "Антон", "Чехов")

	mkBook(t, st, tolstoy.ID, "Война и мир", "isbn-1", 3)
	mkBook(t, st, tolstoy.ID, "Анна Каренина", "isbn-2", 0)
	mkBook(t, st, chekhov.ID, "Палата №6", "isbn-3", 1)

	// Поиск по названию.
	found, err := st.SearchBooks(ctx, "Война", storage.ListParams{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Поиск по имени автора.
	found, err = st.SearchBooks(ctx, "Чехов", storage.ListParams{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Палата №6", found[0].Title)

	// Только книги с доступными экземплярами.
	available, err := st.AvailableBooks(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)

	// Все книги автора.
	byAuthor, err := st.BooksByAuthorID(ctx, tolstoy.ID)
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)

	byAuthor, err = st.BooksByAuthorID(ctx, 424242)
	require.NoError(t, err)
	require.Empty(t, byAuthor)
}
