package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-library-catalog/internal/models"
)

// Файл общих хелперов интеграционных тестов пакета postgres:
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет goose-миграции из встроенной ФС (RunMigrations);
// - тесты репозиториев лежат в user_test.go, refresh_token_test.go, catalog_test.go.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres — поднимает временный экземпляр PostgreSQL, применяет миграции
// и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	require.NoError(t, RunMigrations(ctx, dsn))

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// mkUser — создаёт пользователя с уникальным username/email и возвращает его.
func mkUser(t *testing.T, st *Storage, username string) *models.User {
	t.Helper()

	now := time.Now().UTC()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

// mkAuthor — создаёт автора и возвращает его.
func mkAuthor(t *testing.T, st *Storage, first, last string) *models.Author {
	t.Helper()

	now := time.Now().UTC()
	a := &models.Author{
		FirstName: first,
		LastName:  last,
		BirthYear: 1900,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.SaveAuthor(context.Background(), a))
	require.NotZero(t, a.ID)
	return a
}

// mkBook — создаёт книгу указанного автора и возвращает её.
func mkBook(t *testing.T, st *Storage, authorID int64, title, isbn string, available int32) *models.Book {
	t.Helper()

	now := time.Now().UTC()
	b := &models.Book{
		Title:           title,
		ISBN:            isbn,
		AuthorID:        authorID,
		AvailableCopies: available,
		TotalCopies:     available,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.SaveBook(context.Background(), b))
	require.NotZero(t, b.ID)
	return b
}
