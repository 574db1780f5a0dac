package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

const authTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	log    *slog.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, log: log.With(slog.String("component", "handler/auth"))}
}

type registerReq struct {
	Name     string `json:"name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"` // USER | ORGANIZER
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	Success bool      `json:"success"`
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: msg})
}

func (h *AuthHandler) internal(c echo.Context, msg string, err error) error {
	h.log.Error(msg, slog.String("path", c.Path()), sl.Err(err))
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "Internal", Message: "internal server error"})
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Success: true,
		User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a user and returns tokens immediately.  ADMIN cannot be
// self-assigned; anything other than ORGANIZER becomes USER.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleOrganizer {
		role = model.RoleUser
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, errorBody{Error: "Conflict", Message: "email already exists"})
	}
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationError", Message: "password must be at most 72 bytes"})
	}
	if err != nil {
		return h.internal(c, "create user failed", err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.internal(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies the password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return unauthorized(c, "invalid credentials")
	}
	if err != nil {
		return h.internal(c, "load user failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return unauthorized(c, "invalid credentials")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.internal(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationError", Message: "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return unauthorized(c, "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "validate refresh failed", err)
	}
	// a concurrent refresh may have revoked it since ValidateRefresh
	err = h.Tokens.RevokeByHash(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return unauthorized(c, "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "revoke refresh failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return unauthorized(c, "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "load user failed", err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.internal(c, "issue tokens failed", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes a single refresh token when one is given in the body.
// Otherwise a valid bearer token revokes every session of its user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return unauthorized(c, "invalid refresh token")
		}
		err := h.Tokens.RevokeByHash(ctx, hash)
		if errors.Is(err, repository.ErrTokenInvalid) {
			return unauthorized(c, "invalid refresh token")
		}
		if err != nil {
			return h.internal(c, "logout failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationError", Message: "provide Authorization header or refresh_token"})
	}
	id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return unauthorized(c, "invalid token")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
		return h.internal(c, "logout failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the caller's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}
