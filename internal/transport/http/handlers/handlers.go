package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/go-library-catalog/internal/service"
	"github.com/pribylovaa/go-library-catalog/internal/storage"
)

// Handlers агрегирует зависимости REST-хендлеров.
type Handlers struct {
	svc      *service.Service
	validate *validator.Validate
}

func New(svc *service.Service) *Handlers {
	return &Handlers{
		svc:      svc,
		validate: validator.New(),
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// checkStruct валидирует запрос и возвращает пополевые сообщения
// в терминах JSON-полей запроса (map пуст — запрос корректен).
func (h *Handlers) checkStruct(value any) map[string]string {
	err := h.validate.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": "invalid request body"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = fieldMessage(fe)
	}

	return fields
}

// fieldMessage переводит нарушенный validate-тег в человекочитаемое сообщение.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	return string(s[0]|0x20) + s[1:]
}

// idParam читает целочисленный path-параметр.
func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func isbnParam(r *http.Request) string {
	return chi.URLParam(r, "isbn")
}

// listParams собирает страничные параметры из query-строки.
// Дефолты повторяют публичный контракт: page=0, size=10, sortDir=asc.
func listParams(r *http.Request, defaultSort string) storage.ListParams {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		page = 0
	}

	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}

	sortBy := q.Get("sortBy")
	if sortBy == "" {
		sortBy = defaultSort
	}

	sortDir := q.Get("sortDir")
	if sortDir == "" {
		sortDir = "asc"
	}

	return storage.ListParams{
		Page:    page,
		Size:    size,
		SortBy:  sortBy,
		SortDir: sortDir,
	}
}
