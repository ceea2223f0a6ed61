package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/apierrors"
)

// Authenticator разрешает access-токен в личность запроса.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.Principal, error)
}

// Authenticate — гейт авторизации для защищённых маршрутов.
//
// Состояния: нет/битый/просроченный токен либо неразрешимая личность —
// 401 до диспатча хендлера; успех — Principal в контексте запроса.
func Authenticate(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteUnauthorized(w, r, "Full authentication is required to access this resource")
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin пропускает только личности с ролью ADMIN.
// Вешается поверх Authenticate.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				apierrors.WriteUnauthorized(w, r, "Full authentication is required to access this resource")
				return
			}

			if !principal.IsAdmin() {
				apierrors.WriteForbidden(w, r, "Access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает Bearer-токен из заголовка Authorization.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) <= len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
