package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-library-catalog/internal/config"
	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
	"github.com/pribylovaa/go-library-catalog/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "library-catalog",
		Audience:        []string{"library-clients"},
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func testUser(t *testing.T, pw string) *models.User {
	t.Helper()
	return &models.User{
		ID:           1,
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RoleUser,
		Enabled:      true,
	}
}

func TestSignIn_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	pw := "Abcdef1!"
	user := testUser(t, pw)

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)
	st.EXPECT().ReplaceRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	pair, got, err := svc.SignIn(ctx, "reader", pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), pair.AccessExpiresAt, 2*time.Second)
}

func TestSignIn_EmptyCredentials(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.SignIn(context.Background(), "", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.SignIn(context.Background(), "reader", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_UserNotFound_OrWrongPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)

	_, _, err := svc.SignIn(context.Background(), "ghost", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Неверный пароль.
	user := testUser(t, "Abcdef1!")
	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)

	_, _, err = svc.SignIn(context.Background(), "reader", "WRONG1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_DisabledAccount(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := testUser(t, "Abcdef1!")
	user.Enabled = false

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(user, nil)

	_, _, err := svc.SignIn(context.Background(), "reader", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByUsername(gomock.Any(), "reader").Return(nil, errors.New("db down"))

	_, _, err := svc.SignIn(context.Background(), "reader", "Abcdef1!")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUp_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().ExistsByUsername(gomock.Any(), "reader").Return(false, nil)
	st.EXPECT().ExistsByEmail(gomock.Any(), "reader@example.com").Return(false, nil)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			u.ID = 42
			return nil
		})

	user, err := svc.SignUp(context.Background(), SignUpParams{
		Username: "reader",
		Email:    "Reader@Example.com",
		Password: "Abcdef1!",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), user.ID)
	require.Equal(t, "reader@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.True(t, user.Enabled)
	require.True(t, checkPassword(user.PasswordHash, "Abcdef1!"))
}

func TestSignUp_UsernameTaken_CheckedBeforeEmail(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Занятый username обрывает регистрацию до проверки email.
	st.EXPECT().ExistsByUsername(gomock.Any(), "reader").Return(true, nil)

	_, err := svc.SignUp(context.Background(), SignUpParams{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "Abcdef1!",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignUp_EmailTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().ExistsByUsername(gomock.Any(), "reader").Return(false, nil)
	st.EXPECT().ExistsByEmail(gomock.Any(), "reader@example.com").Return(true, nil)

	_, err := svc.SignUp(context.Background(), SignUpParams{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "Abcdef1!",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUp_SaveRace_MapsToUsernameTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().ExistsByUsername(gomock.Any(), "reader").Return(false, nil)
	st.EXPECT().ExistsByEmail(gomock.Any(), "reader@example.com").Return(false, nil)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, err := svc.SignUp(context.Background(), SignUpParams{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "Abcdef1!",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRefresh_OK_WithRotation(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Abcdef1!")
	plain := "some-refresh-plain"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	st.EXPECT().ReplaceRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tok *models.RefreshToken) error {
			require.Equal(t, user.ID, tok.UserID)
			require.NotEqual(t, hash, tok.TokenHash)
			return nil
		})

	pair, err := svc.Refresh(ctx, plain)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, plain, pair.RefreshToken)
}

func TestRefresh_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashToken(plain)).Return(nil, storage.ErrNotFound)

	_, err := svc.Refresh(context.Background(), plain)
	require.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefresh_Expired_ReapsToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		UserID:    1,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)
	// Просроченный токен удаляется по факту касания.
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), hash).Return(true, nil)

	_, err := svc.Refresh(context.Background(), plain)
	require.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefresh_UserGone(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		UserID:    7,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), int64(7)).Return(nil, storage.ErrNotFound)

	_, err := svc.Refresh(context.Background(), plain)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSignOut_Idempotent(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashToken(plain)

	// Токен был и удалён.
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), hash).Return(true, nil)
	require.NoError(t, svc.SignOut(context.Background(), plain))

	// Токена не было: выход всё равно успешен.
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), hash).Return(false, nil)
	require.NoError(t, svc.SignOut(context.Background(), plain))

	// Ошибка хранилища пропагируется.
	st.EXPECT().DeleteRefreshTokenByHash(gomock.Any(), hash).Return(false, errors.New("db down"))
	require.Error(t, svc.SignOut(context.Background(), plain))
}

func TestRevokeUserSessions(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().DeleteRefreshTokensByUserID(gomock.Any(), int64(1)).Return(nil)
	require.NoError(t, svc.RevokeUserSessions(context.Background(), 1))

	st.EXPECT().DeleteRefreshTokensByUserID(gomock.Any(), int64(1)).Return(errors.New("db down"))
	require.Error(t, svc.RevokeUserSessions(context.Background(), 1))
}

func TestAuthenticate_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Abcdef1!")
	user.Role = models.RoleAdmin

	at, err := svc.generateAccessToken(ctx, user.Username, user.Role, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByUsername(gomock.Any(), user.Username).Return(user, nil)

	p, err := svc.Authenticate(ctx, at)
	require.NoError(t, err)
	require.Equal(t, user.ID, p.ID)
	require.Equal(t, user.Username, p.Username)
	require.True(t, p.IsAdmin())
}

func TestAuthenticate_DisabledOrMissingUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Abcdef1!")

	at, err := svc.generateAccessToken(ctx, user.Username, user.Role, time.Now().UTC())
	require.NoError(t, err)

	// Аккаунт отключён после выпуска токена.
	disabled := *user
	disabled.Enabled = false
	st.EXPECT().UserByUsername(gomock.Any(), user.Username).Return(&disabled, nil)

	_, err = svc.Authenticate(ctx, at)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Аккаунт удалён.
	st.EXPECT().UserByUsername(gomock.Any(), user.Username).Return(nil, storage.ErrNotFound)

	_, err = svc.Authenticate(ctx, at)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_BadToken(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.Authenticate(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}
