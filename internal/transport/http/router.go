// Package http собирает REST-маршрутизатор каталога.
//
// Граница ответственности слоя:
//   - публичные маршруты /api/auth/* (вход, регистрация, ротация, выход);
//   - защищённые маршруты каталога: чтение — любому аутентифицированному,
//     мутации — только роли ADMIN;
//   - сквозные middleware: восстановление после паник, request-id,
//     структурированный access-лог, таймаут запроса.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-library-catalog/internal/service"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/handlers"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/middleware"
)

// NewRouter строит chi-маршрутизатор поверх сервисного слоя.
func NewRouter(svc *service.Service, logger *slog.Logger, requestTimeout time.Duration) http.Handler {
	h := handlers.New(svc)

	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signin", h.SignIn)
		r.Post("/signup", h.SignUp)
		r.Post("/refreshtoken", h.Refresh)
		r.Post("/signout", h.SignOut)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(svc))

		r.Route("/api/books", func(r chi.Router) {
			r.Get("/", h.ListBooks)
			r.Get("/search", h.SearchBooks)
			r.Get("/available", h.AvailableBooks)
			r.Get("/isbn/{isbn}", h.BookByISBN)
			r.Get("/author/{authorId}", h.BooksByAuthor)
			r.Get("/{id}", h.BookByID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Post("/", h.CreateBook)
				r.Put("/{id}", h.UpdateBook)
				r.Delete("/{id}", h.DeleteBook)
			})
		})

		r.Route("/api/authors", func(r chi.Router) {
			r.Get("/", h.ListAuthors)
			r.Get("/search", h.SearchAuthors)
			r.Get("/{id}", h.AuthorByID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Post("/", h.CreateAuthor)
				r.Put("/{id}", h.UpdateAuthor)
				r.Delete("/{id}", h.DeleteAuthor)
			})
		})
	})

	return r
}
