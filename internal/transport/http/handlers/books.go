package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/apierrors"
)

type bookRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	ISBN            string `json:"isbn" validate:"required,max=20"`
	Description     string `json:"description" validate:"max=2000"`
	PublicationYear int32  `json:"publicationYear" validate:"gte=0"`
	AvailableCopies int32  `json:"availableCopies" validate:"gte=0"`
	TotalCopies     int32  `json:"totalCopies" validate:"gte=0"`
	AuthorID        int64  `json:"authorId" validate:"required"`
}

type bookResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	ISBN            string    `json:"isbn"`
	Description     string    `json:"description"`
	PublicationYear int32     `json:"publicationYear"`
	AvailableCopies int32     `json:"availableCopies"`
	TotalCopies     int32     `json:"totalCopies"`
	AuthorID        int64     `json:"authorId"`
	AuthorName      string    `json:"authorName"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toBookResponse(b *models.Book) bookResponse {
	return bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		ISBN:            b.ISBN,
		Description:     b.Description,
		PublicationYear: b.PublicationYear,
		AvailableCopies: b.AvailableCopies,
		TotalCopies:     b.TotalCopies,
		AuthorID:        b.AuthorID,
		AuthorName:      b.AuthorName,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toBookResponses(books []models.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for i := range books {
		out = append(out, toBookResponse(&books[i]))
	}

	return out
}

// ListBooks возвращает страницу книг.
//
// GET /api/books.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListBooks(r.Context(), listParams(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// SearchBooks ищет книги по подстроке названия/ISBN/имени автора.
//
// GET /api/books/search?q=...
func (h *Handlers) SearchBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.SearchBooks(r.Context(), r.URL.Query().Get("q"), listParams(r, "title"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// AvailableBooks возвращает книги с доступными экземплярами.
//
// GET /api/books/available.
func (h *Handlers) AvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.AvailableBooks(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// BookByID возвращает книгу по ID.
//
// GET /api/books/{id}.
func (h *Handlers) BookByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid book id")
		return
	}

	book, err := h.svc.BookByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(book))
}

// BookByISBN возвращает книгу по ISBN.
//
// GET /api/books/isbn/{isbn}.
func (h *Handlers) BookByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.BookByISBN(r.Context(), isbnParam(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(book))
}

// BooksByAuthor возвращает все книги автора.
//
// GET /api/books/author/{authorId}.
func (h *Handlers) BooksByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := idParam(r, "authorId")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid author id")
		return
	}

	books, err := h.svc.BooksByAuthor(r.Context(), authorID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponses(books))
}

// CreateBook создаёт книгу (только ADMIN).
//
// POST /api/books.
func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	book := bookFromRequest(req)
	if err := h.svc.CreateBook(r.Context(), &book); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookResponse(&book))
}

// UpdateBook обновляет данные книги (только ADMIN).
//
// PUT /api/books/{id}.
func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid book id")
		return
	}

	var req bookRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	book := bookFromRequest(req)
	book.ID = id

	if err := h.svc.UpdateBook(r.Context(), &book); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.BookByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

// DeleteBook удаляет книгу (только ADMIN).
//
// DELETE /api/books/{id}.
func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid book id")
		return
	}

	if err := h.svc.DeleteBook(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func bookFromRequest(req bookRequest) models.Book {
	return models.Book{
		Title:           req.Title,
		ISBN:            req.ISBN,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		AvailableCopies: req.AvailableCopies,
		TotalCopies:     req.TotalCopies,
		AuthorID:        req.AuthorID,
	}
}
