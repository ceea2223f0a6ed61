// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку сервиса, на выход даёт:
//   - корректный HTTP-статус;
//   - стабильное машиночитаемое тело без утечки внутренних деталей.
//
// Формат тела: {timestamp, status, error, message, path}; для ошибок
// валидации добавляется validationErrors: {поле: сообщение}.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/service"
)

// ErrorResponse — единый формат ошибки для клиентов.
type ErrorResponse struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и категорию/сообщение.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не
//     замаскировать баг ответом "200 OK" с телом ошибки;
//   - неизвестная ошибка — 500 без деталей.
func ToHTTP(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "Internal Server Error", "internal error"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Unauthorized", "Bad credentials"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Unauthorized", "Access token expired"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized", "Invalid access token"
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusBadRequest, "Bad Request", "Error: Username is already taken!"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "Bad Request", "Error: Email is already in use!"
	case errors.Is(err, service.ErrRefreshTokenNotFound):
		return http.StatusForbidden, "Forbidden", "Refresh token is not in database!"
	case errors.Is(err, service.ErrRefreshTokenExpired):
		return http.StatusForbidden, "Forbidden", "Refresh token was expired. Please make a new signin request"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "Resource Not Found", "User not found"
	case errors.Is(err, service.ErrAuthorNotFound):
		return http.StatusNotFound, "Resource Not Found", "Author not found"
	case errors.Is(err, service.ErrBookNotFound):
		return http.StatusNotFound, "Resource Not Found", "Book not found"
	case errors.Is(err, service.ErrISBNTaken):
		return http.StatusConflict, "Conflict", "Book with this ISBN already exists"
	default:
		return http.StatusInternalServerError, "Internal Server Error", "internal error"
	}
}

// WriteError — хелпер для HTTP-хендлеров: пишет статус и унифицированное тело.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, category, msg := ToHTTP(err)
	write(w, r, ErrorResponse{
		Status:  status,
		Error:   category,
		Message: msg,
	})
}

// WriteUnauthorized пишет 401 с заданным сообщением (authn-гейт).
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, r, ErrorResponse{
		Status:  http.StatusUnauthorized,
		Error:   "Unauthorized",
		Message: msg,
	})
}

// WriteForbidden пишет 403 с заданным сообщением (ролевой гейт).
func WriteForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, r, ErrorResponse{
		Status:  http.StatusForbidden,
		Error:   "Forbidden",
		Message: msg,
	})
}

// WriteBadRequest пишет 400 с заданным сообщением (битое тело запроса).
func WriteBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, r, ErrorResponse{
		Status:  http.StatusBadRequest,
		Error:   "Bad Request",
		Message: msg,
	})
}

// WriteValidation пишет 400 с пополевыми сообщениями.
func WriteValidation(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	write(w, r, ErrorResponse{
		Status:           http.StatusBadRequest,
		Error:            "Validation Failed",
		Message:          "Input validation failed",
		ValidationErrors: fields,
	})
}

func write(w http.ResponseWriter, r *http.Request, resp ErrorResponse) {
	resp.Timestamp = time.Now().UTC()
	resp.Path = r.URL.Path

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp)
}
