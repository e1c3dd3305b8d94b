package handler

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/store"
	"github.com/google/uuid"
)

const minPasswordLength = 8

type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type AuthResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
}

type RegisterHandler struct {
	users         store.UserStore
	authenticator *auth.Authenticator
}

func NewRegisterHandler(
	users store.UserStore,
	authenticator *auth.Authenticator,
) *RegisterHandler {
	return &RegisterHandler{
		users,
		authenticator,
	}
}

func (h *RegisterHandler) Handle(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid email address"))
	}

	if len(req.Password) < minPasswordLength {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("password too short"))
	}

	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if !req.Role.Valid() {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid role"))
	}

	_, err := h.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("email already registered"))
	}
	if !errors.Is(err, store.ErrNotFound) {
		return AuthResponse{}, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return AuthResponse{}, err
	}

	now := time.Now()
	user := domain.User{
		Id:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		CreateTime:   now,
		UpdateTime:   now,
	}

	err = h.users.Create(ctx, user)
	if err != nil {
		return AuthResponse{}, err
	}

	return h.respond(user)
}

func (h *RegisterHandler) respond(user domain.User) (AuthResponse, error) {
	token, err := h.authenticator.IssueToken(user.Id, user.Role)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:      user,
		Token:     token,
		TokenType: "bearer",
	}, nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginHandler struct {
	users         store.UserStore
	authenticator *auth.Authenticator
}

func NewLoginHandler(
	users store.UserStore,
	authenticator *auth.Authenticator,
) *LoginHandler {
	return &LoginHandler{
		users,
		authenticator,
	}
}

func (h *LoginHandler) Handle(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("incorrect email or password"))
	}
	if err != nil {
		return AuthResponse{}, err
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return AuthResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("incorrect email or password"))
	}

	token, err := h.authenticator.IssueToken(user.Id, user.Role)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:      user,
		Token:     token,
		TokenType: "bearer",
	}, nil
}

type MeHandler struct {
	users store.UserStore
}

func NewMeHandler(users store.UserStore) *MeHandler {
	return &MeHandler{
		users,
	}
}

func (h *MeHandler) Handle(ctx context.Context) (domain.User, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.User{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	user, err := h.users.GetById(ctx, identity.UserId)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("user not found"))
	}

	return user, err
}
