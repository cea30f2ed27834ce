package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/config"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
	"github.com/revanthm1902/task-token-tracker/internal/service"
	"github.com/revanthm1902/task-token-tracker/internal/utils"
)

// AuthHandler bundles dependencies for session endpoints. There is no
// open registration: accounts exist only through Director/Admin
// provisioning, so the surface here is sign-in, token refresh, sign-out
// and self-service password change.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Accounts *service.AccountService
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, a *service.AccountService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Accounts: a}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenPart struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}
type userPart struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	EmployeeCode string `json:"employee_code"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	TotalTokens  uint32 `json:"total_tokens"`
	TempPassword bool   `json:"temp_password"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(a repository.Account) userPart {
	return userPart{
		ID:           a.UserID,
		Email:        a.Email,
		EmployeeCode: a.EmployeeCode,
		FullName:     a.FullName,
		Role:         a.Role,
		TotalTokens:  a.TotalTokens,
		TempPassword: a.TempPassword,
	}
}

// issuePair creates an access/refresh pair for the account and persists
// the refresh hash.
func (h *AuthHandler) issuePair(c echo.Context, acct repository.Account) (authResp, bool) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, acct.UserID, acct.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, false
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, false
	}
	if err := h.Tokens.StoreRefresh(ctx, acct.UserID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, false
	}
	return authResp{
		User:    toUserPart(acct),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp.Format("2006-01-02T15:04:05Z07:00")},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp.Format("2006-01-02T15:04:05Z07:00")},
	}, true
}

// Login verifies credentials and returns a fresh token pair. The
// temp_password flag in the response tells the dashboard to force a
// password change before anything else.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(acct.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, ok := h.issuePair(c, acct)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a
// new pair (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	acct, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account no longer exists"})
	}

	resp, ok := h.issuePair(c, acct)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token. Idempotent from the
// client's view: revoking an already-revoked token still returns 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, err := h.Accounts.Me(ctx, act)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(acct))
}

// ChangePassword replaces the caller's own password after verifying the
// current one, clearing the temporary-password flag. All refresh tokens
// are revoked so other sessions must sign in again.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.ChangeOwnPassword(ctx, act, req.CurrentPassword, req.NewPassword); err != nil {
		if err == service.ErrNotAllowed {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password incorrect"})
		}
		return writeErr(c, err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, act.ID)
	return c.NoContent(http.StatusNoContent)
}
