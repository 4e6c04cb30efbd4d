package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/config"
	"github.com/stashpoint/space-inventory/internal/model"
	"github.com/stashpoint/space-inventory/internal/repository"
	"github.com/stashpoint/space-inventory/internal/utils"
)

// AuthHandler bundles dependencies for signup and session endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Members *repository.MemberRepo
	Tokens  *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, m *repository.MemberRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Members: m, Tokens: t}
}

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type memberPart struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
type sessionPart struct {
	Member  memberPart `json:"member"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Signup handles POST /v1/members: create the member and return it
// without the credential hash. The password must be at least eight
// characters; a duplicate email reports 409.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	var details []fieldError
	name, details := requireName(details, req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		details = append(details, fieldError{Path: "email", Message: "must be a valid email address"})
	}
	if len(req.Password) < 8 {
		details = append(details, fieldError{Path: "password", Message: "must be at least 8 characters"})
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.Create(ctx, name, email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusCreated, memberPart{ID: m.ID, Name: m.Name, Email: m.Email, CreatedAt: m.CreatedAt})
}

// Login verifies credentials and returns a fresh access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondError(c, http.StatusBadRequest, codeValidation, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Members.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		}
		return respondInternal(c, err)
	}
	if !utils.VerifyPassword(m.PasswordHash, req.Password) {
		return respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	}

	sess, err := h.issueSession(ctx, m)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondData(c, http.StatusOK, sess)
}

// Refresh validates a refresh token by hash, revokes it and issues a
// new pair (token rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return respondError(c, http.StatusBadRequest, codeValidation, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	memberID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired refresh token")
		}
		return respondInternal(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondInternal(c, err)
	}
	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		return respondRepoError(c, err)
	}
	sess, err := h.issueSession(ctx, m)
	if err != nil {
		return respondInternal(c, err)
	}
	return respondData(c, http.StatusOK, sess)
}

// Me returns the authenticated member.
func (h *AuthHandler) Me(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	}
	m, err := h.Members.GetByID(c.Request().Context(), memberID)
	if err != nil {
		return respondRepoError(c, err)
	}
	return respondData(c, http.StatusOK, memberPart{ID: m.ID, Name: m.Name, Email: m.Email, CreatedAt: m.CreatedAt})
}

// issueSession builds a signed access token and a stored refresh
// token for the member.
func (h *AuthHandler) issueSession(ctx context.Context, m *model.Member) (*sessionPart, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, model.RoleMember, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, m.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &sessionPart{
		Member:  memberPart{ID: m.ID, Name: m.Name, Email: m.Email, CreatedAt: m.CreatedAt},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
