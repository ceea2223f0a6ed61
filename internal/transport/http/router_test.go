package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-library-catalog/internal/config"
	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/service"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
	"github.com/pribylovaa/go-library-catalog/mocks"
)

func testRouter(t *testing.T) (http.Handler, *mocks.MockStorage, *service.Service) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStorage(ctrl)
	svc := service.New(st, config.AuthConfig{
		JWTSecret:       "router-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "library-catalog",
		Audience:        []string{"library-clients"},
	})

	logger := slog.New(slog.DiscardHandler)

	return NewRouter(svc, logger, 5*time.Second), st, svc
}

func mustBcrypt(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// accessTokenFor устраивает полноценный вход и возвращает access-токен.
func accessTokenFor(t *testing.T, router http.Handler, st *mocks.MockStorage, user *models.User) string {
	t.Helper()

	st.EXPECT().UserByUsername(gomock.Any(), user.Username).Return(user, nil)
	st.EXPECT().ReplaceRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := postJSON(t, router, "/api/auth/signin", map[string]string{
		"username": user.Username,
		"password": "Abcdef1!",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignIn_ResponseShape(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{
		ID:           7,
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		FirstName:    "Ann",
		LastName:     "Lee",
		Role:         models.RoleUser,
		Enabled:      true,
	}

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)
	st.EXPECT().ReplaceRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := postJSON(t, router, "/api/auth/signin", map[string]string{
		"username": "reader",
		"password": "Abcdef1!",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	require.NotEmpty(t, resp["refreshToken"])
	require.EqualValues(t, 7, resp["id"])
	require.Equal(t, "reader", resp["username"])
	require.Equal(t, "reader@example.com", resp["email"])
	require.Equal(t, "Ann", resp["firstName"])
	require.Equal(t, "Lee", resp["lastName"])
	require.Equal(t, "USER", resp["role"])
	require.Equal(t, "Bearer", resp["type"])
}

func TestSignIn_BadCredentials(t *testing.T) {
	router, st, _ := testRouter(t)

	st.EXPECT().UserByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)

	rr := postJSON(t, router, "/api/auth/signin", map[string]string{
		"username": "ghost",
		"password": "whatever",
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Bad credentials", resp["message"])
}

func TestSignUp_OKAndConflicts(t *testing.T) {
	router, st, _ := testRouter(t)

	body := map[string]string{
		"username": "newbie",
		"email":    "newbie@example.com",
		"password": "Abcdef1!",
	}

	st.EXPECT().ExistsByUsername(gomock.Any(), "newbie").Return(false, nil)
	st.EXPECT().ExistsByEmail(gomock.Any(), "newbie@example.com").Return(false, nil)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)

	rr := postJSON(t, router, "/api/auth/signup", body)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "User registered successfully!")

	// Занятый username: email вообще не проверяется.
	st.EXPECT().ExistsByUsername(gomock.Any(), "newbie").Return(true, nil)

	rr = postJSON(t, router, "/api/auth/signup", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Error: Username is already taken!")

	// Занятый email.
	st.EXPECT().ExistsByUsername(gomock.Any(), "newbie").Return(false, nil)
	st.EXPECT().ExistsByEmail(gomock.Any(), "newbie@example.com").Return(true, nil)

	rr = postJSON(t, router, "/api/auth/signup", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Error: Email is already in use!")
}

func TestSignUp_ValidationErrors(t *testing.T) {
	router, _, _ := testRouter(t)

	rr := postJSON(t, router, "/api/auth/signup", map[string]string{
		"username": "ab", // короче минимума
		"email":    "not-an-email",
		"password": "123",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		ValidationErrors map[string]string `json:"validationErrors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp.ValidationErrors, "username")
	require.Contains(t, resp.ValidationErrors, "email")
	require.Contains(t, resp.ValidationErrors, "password")
}

func TestRefreshToken_UnknownAndExpired(t *testing.T) {
	router, st, _ := testRouter(t)

	// Неизвестный токен.
	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	rr := postJSON(t, router, "/api/auth/refreshtoken", map[string]string{"refreshToken": "unknown"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "Refresh token is not in database!")

	// Просроченный токен вычищается и отклоняется.
	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
		UserID:    1,
		TokenHash: "h",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), gomock.Any()).Return(true, nil)

	rr = postJSON(t, router, "/api/auth/refreshtoken", map[string]string{"refreshToken": "expired"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "Refresh token was expired. Please make a new signin request")
}

func TestRefreshToken_RotatesPair(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{ID: 1, Username: "reader", Role: models.RoleUser, Enabled: true}

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
		UserID:    1,
		TokenHash: "old-hash",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), int64(1)).Return(user, nil)
	st.EXPECT().ReplaceRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := postJSON(t, router, "/api/auth/refreshtoken", map[string]string{"refreshToken": "current"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["accessToken"])
	require.NotEmpty(t, resp["refreshToken"])
	require.NotEqual(t, "current", resp["refreshToken"])
	require.Equal(t, "Bearer", resp["tokenType"])
}

func TestSignOut_AlwaysOK(t *testing.T) {
	router, st, _ := testRouter(t)

	// Даже для неизвестного токена — 200.
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), gomock.Any()).Return(false, nil)

	rr := postJSON(t, router, "/api/auth/signout", map[string]string{"refreshToken": "whatever"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Log out successful!")
}

func TestCatalog_RequiresAuthentication(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "Full authentication is required to access this resource")
}

func TestCatalog_ReadAsUser(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{
		ID:           1,
		Username:     "reader",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		Role:         models.RoleUser,
		Enabled:      true,
	}
	token := accessTokenFor(t, router, st, user)

	// Гейт перечитывает аккаунт на каждый запрос.
	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)
	st.EXPECT().ListBooks(gomock.Any(), gomock.Any()).Return([]models.Book{
		{ID: 1, Title: "Мастер и Маргарита", ISBN: "978-5-04-094648-1", AuthorID: 2, AuthorName: "Михаил Булгаков"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books?page=0&size=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var books []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &books))
	require.Len(t, books, 1)
	require.Equal(t, "Мастер и Маргарита", books[0]["title"])
	require.Equal(t, "Михаил Булгаков", books[0]["authorName"])
}

func TestCatalog_MutationRequiresAdmin(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{
		ID:           1,
		Username:     "reader",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		Role:         models.RoleUser,
		Enabled:      true,
	}
	token := accessTokenFor(t, router, st, user)

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)

	raw, err := json.Marshal(map[string]any{
		"firstName": "Лев",
		"lastName":  "Толстой",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/authors", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "Access denied")
}

func TestCatalog_AdminCreatesAuthor(t *testing.T) {
	router, st, _ := testRouter(t)

	admin := &models.User{
		ID:           2,
		Username:     "librarian",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		Role:         models.RoleAdmin,
		Enabled:      true,
	}
	token := accessTokenFor(t, router, st, admin)

	st.EXPECT().UserByUsername(gomock.Any(), "librarian").Return(admin, nil)
	st.EXPECT().SaveAuthor(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *models.Author) error {
			a.ID = 3
			return nil
		})

	raw, err := json.Marshal(map[string]any{
		"firstName": "Лев",
		"lastName":  "Толстой",
		"birthYear": 1828,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/authors", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 3, resp["id"])
	require.Equal(t, "Толстой", resp["lastName"])
}

func TestCatalog_NotFoundMessages(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{
		ID:           1,
		Username:     "reader",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		Role:         models.RoleUser,
		Enabled:      true,
	}
	token := accessTokenFor(t, router, st, user)

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)
	st.EXPECT().BookByID(gomock.Any(), int64(404)).Return(nil, storage.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/books/404", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "Book not found")
}

func TestCatalog_DisabledAccountRejected(t *testing.T) {
	router, st, _ := testRouter(t)

	user := &models.User{
		ID:           1,
		Username:     "reader",
		PasswordHash: mustBcrypt(t, "Abcdef1!"),
		Role:         models.RoleUser,
		Enabled:      true,
	}
	token := accessTokenFor(t, router, st, user)

	// Аккаунт отключили после входа: живой access-токен больше не работает.
	disabled := *user
	disabled.Enabled = false
	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(&disabled, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
