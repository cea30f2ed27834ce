package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
	"github.com/revanthm1902/task-token-tracker/internal/service"
)

// UserHandler exposes account administration: listing, provisioning,
// deletion, token gifts, and the caller's own award history.
type UserHandler struct {
	Accounts *service.AccountService
	Ledger   *repository.LedgerRepo
}

func NewUserHandler(a *service.AccountService, l *repository.LedgerRepo) *UserHandler {
	return &UserHandler{Accounts: a, Ledger: l}
}

// ----- DTOs -----

type createUserReq struct {
	Email        string  `json:"email"`
	TempPassword string  `json:"temp_password"`
	FullName     string  `json:"full_name"`
	Role         string  `json:"role"`
	Phone        *string `json:"phone"`
}

type giveTokensReq struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type ledgerEntryResp struct {
	ID            uint64  `json:"id"`
	TaskID        *uint64 `json:"task_id,omitempty"`
	TokensAwarded uint32  `json:"tokens_awarded"`
	Reason        string  `json:"reason"`
	CreatedAt     string  `json:"created_at"`
}

func toLedgerResp(entries []model.LedgerEntry) []ledgerEntryResp {
	out := make([]ledgerEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResp{
			ID:            e.ID,
			TaskID:        e.TaskID,
			TokensAwarded: e.TokensAwarded,
			Reason:        e.Reason,
			CreatedAt:     isoTime(e.CreatedAt),
		})
	}
	return out
}

// List handles GET /v1/users (Admin/Director).
func (h *UserHandler) List(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	accounts, err := h.Accounts.ListUsers(ctx, act)
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]userPart, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toUserPart(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/users. The service enforces who may provision
// which role; the temporary password is returned once to the caller so
// they can hand it to the new hire.
func (h *UserHandler) Create(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, err := h.Accounts.CreateUser(ctx, act, service.CreateUserInput{
		Email:        req.Email,
		TempPassword: req.TempPassword,
		FullName:     req.FullName,
		Role:         req.Role,
		Phone:        req.Phone,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, toUserPart(acct))
}

// Delete handles DELETE /v1/users/:id. The cascade removes tasks,
// ledger rows and activity references before the account itself.
func (h *UserHandler) Delete(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.DeleteUser(ctx, act, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GiveTokens handles POST /v1/users/:id/tokens: a direct gift outside
// the task flow.
func (h *UserHandler) GiveTokens(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req giveTokensReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.GiveTokens(ctx, act, id, req.Amount, req.Reason); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyLedger handles GET /v1/me/ledger: the caller's own award history,
// newest first. ?limit caps the page (default 50, max 200).
func (h *UserHandler) MyLedger(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Ledger.ListByUser(ctx, act.ID, queryInt(c, "limit"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toLedgerResp(entries))
}
