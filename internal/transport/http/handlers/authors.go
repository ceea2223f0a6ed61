package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-library-catalog/internal/models"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/apierrors"
)

type authorRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Biography string `json:"biography" validate:"max=2000"`
	BirthYear int32  `json:"birthYear" validate:"gte=0"`
}

type authorResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Biography string    `json:"biography"`
	BirthYear int32     `json:"birthYear"`
	BookCount int64     `json:"bookCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAuthorResponse(a *models.Author) authorResponse {
	return authorResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Biography: a.Biography,
		BirthYear: a.BirthYear,
		BookCount: a.BookCount,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAuthorResponses(authors []models.Author) []authorResponse {
	out := make([]authorResponse, 0, len(authors))
	for i := range authors {
		out = append(out, toAuthorResponse(&authors[i]))
	}

	return out
}

// ListAuthors возвращает страницу авторов.
//
// GET /api/authors.
func (h *Handlers) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.svc.ListAuthors(r.Context(), listParams(r, "lastName"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthorResponses(authors))
}

// SearchAuthors ищет авторов по подстроке имени/фамилии.
//
// GET /api/authors/search?q=...
func (h *Handlers) SearchAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.svc.SearchAuthors(r.Context(), r.URL.Query().Get("q"), listParams(r, "lastName"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthorResponses(authors))
}

// AuthorByID возвращает автора по ID.
//
// GET /api/authors/{id}.
func (h *Handlers) AuthorByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid author id")
		return
	}

	author, err := h.svc.AuthorByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthorResponse(author))
}

// CreateAuthor создаёт автора (только ADMIN).
//
// POST /api/authors.
func (h *Handlers) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	author := models.Author{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Biography: req.Biography,
		BirthYear: req.BirthYear,
	}

	if err := h.svc.CreateAuthor(r.Context(), &author); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAuthorResponse(&author))
}

// UpdateAuthor обновляет данные автора (только ADMIN).
//
// PUT /api/authors/{id}.
func (h *Handlers) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid author id")
		return
	}

	var req authorRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	author := models.Author{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Biography: req.Biography,
		BirthYear: req.BirthYear,
	}

	if err := h.svc.UpdateAuthor(r.Context(), &author); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.AuthorByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthorResponse(updated))
}

// DeleteAuthor удаляет автора (только ADMIN).
//
// DELETE /api/authors/{id}.
func (h *Handlers) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apierrors.WriteBadRequest(w, r, "invalid author id")
		return
	}

	if err := h.svc.DeleteAuthor(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
