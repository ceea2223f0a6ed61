package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-library-catalog/internal/service"
	"github.com/pribylovaa/go-library-catalog/internal/transport/http/apierrors"
)

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role"`
	Type         string `json:"type"`
}

type signUpRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=20"`
	Email     string `json:"email" validate:"required,max=50,email"`
	Password  string `json:"password" validate:"required,min=6,max=40"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignIn проверяет пару логин/пароль и выдаёт пару токенов.
//
// POST /api/auth/signin.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	pair, user, err := h.svc.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         string(user.Role),
		Type:         "Bearer",
	})
}

// SignUp регистрирует нового пользователя с ролью USER.
//
// POST /api/auth/signup.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	_, err := h.svc.SignUp(r.Context(), service.SignUpParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User registered successfully!"})
}

// Refresh ротирует refresh-токен и выдаёт свежую пару.
//
// POST /api/auth/refreshtoken.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if fields := h.checkStruct(req); fields != nil {
		apierrors.WriteValidation(w, r, fields)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	})
}

// SignOut гасит активную сессию предъявителя refresh-токена.
// Операция идемпотентна: неизвестный токен тоже даёт 200.
//
// POST /api/auth/signout.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil {
		apierrors.WriteBadRequest(w, r, "malformed JSON body")
		return
	}

	if err := h.svc.SignOut(r.Context(), req.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Log out successful!"})
}
