package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
)

// ActivityHandler serves the audit feed every signed-in account can
// read. Entries are immutable; there is no write endpoint.
type ActivityHandler struct {
	Activity *repository.ActivityRepo
}

func NewActivityHandler(a *repository.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{Activity: a}
}

type activityResp struct {
	ID           uint64  `json:"id"`
	ActorID      uint64  `json:"actor_id"`
	Action       string  `json:"action"`
	Label        string  `json:"label"`
	Icon         string  `json:"icon"`
	TargetUserID *uint64 `json:"target_user_id,omitempty"`
	TaskID       *uint64 `json:"task_id,omitempty"`
	Message      string  `json:"message"`
	CreatedAt    string  `json:"created_at"`
}

func toActivityResp(entries []model.Activity) []activityResp {
	out := make([]activityResp, 0, len(entries))
	for _, a := range entries {
		out = append(out, activityResp{
			ID:           a.ID,
			ActorID:      a.ActorID,
			Action:       string(a.Action),
			Label:        a.Action.Describe(),
			Icon:         a.Action.Icon(),
			TargetUserID: a.TargetUserID,
			TaskID:       a.TaskID,
			Message:      a.Message,
			CreatedAt:    isoTime(a.CreatedAt),
		})
	}
	return out
}

// List handles GET /v1/activity. ?since=RFC3339 limits the result to
// entries after that instant (the unread tail); ?limit caps the page.
func (h *ActivityHandler) List(c echo.Context) error {
	if _, err := actor(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var since *time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "since must be RFC3339"})
		}
		u := t.UTC()
		since = &u
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Activity.ListRecent(ctx, since, queryInt(c, "limit"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toActivityResp(entries))
}
