package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/service"
)

// ResetHandler covers the password-reset flow. Submission is the one
// unauthenticated endpoint in the API (rate limited at the router);
// listing and resolving the queue is Director-only.
type ResetHandler struct {
	Accounts *service.AccountService
}

func NewResetHandler(a *service.AccountService) *ResetHandler {
	return &ResetHandler{Accounts: a}
}

// ----- DTOs -----

type submitResetReq struct {
	Email string `json:"email"`
}

type resolveResetReq struct {
	// "approve" resets the target's password; "dismiss" closes the
	// request without touching any account.
	Action      string `json:"action"`
	TargetID    uint64 `json:"target_id"`
	NewPassword string `json:"new_password"`
}

type resetResp struct {
	ID         uint64  `json:"id"`
	Reference  string  `json:"reference"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	ResolvedBy *uint64 `json:"resolved_by,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

func toResetResp(r model.PasswordResetRequest) resetResp {
	return resetResp{
		ID:         r.ID,
		Reference:  r.Reference,
		Email:      r.Email,
		Status:     r.Status,
		ResolvedBy: r.ResolvedBy,
		CreatedAt:  isoTime(r.CreatedAt),
		ResolvedAt: isoTimePtr(r.ResolvedAt),
	}
}

// Submit handles POST /v1/password-resets (public). Always answers 202
// with the opaque reference; whether the email maps to an account is
// never revealed here.
func (h *ResetHandler) Submit(c echo.Context) error {
	var req submitResetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ref, err := h.Accounts.SubmitResetRequest(ctx, req.Email)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"reference": ref})
}

// ListPending handles GET /v1/password-resets (Director).
func (h *ResetHandler) ListPending(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pending, err := h.Accounts.ListPendingResets(ctx, act)
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]resetResp, 0, len(pending))
	for _, r := range pending {
		out = append(out, toResetResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

// Resolve handles POST /v1/password-resets/:id/resolve (Director).
// Resolution is first-write-wins: a request already resolved by another
// Director comes back as a conflict.
func (h *ResetHandler) Resolve(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resolveResetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch req.Action {
	case "approve":
		if err := h.Accounts.ResetPassword(ctx, act, req.TargetID, req.NewPassword, id); err != nil {
			return writeErr(c, err)
		}
	case "dismiss":
		if err := h.Accounts.DismissResetRequest(ctx, act, id); err != nil {
			return writeErr(c, err)
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be approve or dismiss"})
	}
	return c.NoContent(http.StatusNoContent)
}
