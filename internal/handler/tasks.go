package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/model"
	"github.com/revanthm1902/task-token-tracker/internal/service"
)

// TaskHandler exposes the task lifecycle over HTTP. Route groups apply
// the role middleware, and the service re-checks every guard, so these
// handlers only translate between JSON and service calls.
type TaskHandler struct {
	Tasks *service.TaskService
}

func NewTaskHandler(t *service.TaskService) *TaskHandler { return &TaskHandler{Tasks: t} }

// ----- DTOs -----

type createTaskReq struct {
	AssigneeID  uint64 `json:"assignee_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"` // RFC3339
	TokenValue  uint32 `json:"token_value"`
}

type editTaskReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssigneeID  *uint64 `json:"assignee_id"`
	Deadline    *string `json:"deadline"` // RFC3339
	TokenValue  *uint32 `json:"token_value"`
}

type submitTaskReq struct {
	Note *string `json:"note"`
}

type extendReq struct {
	Deadline string `json:"deadline"` // RFC3339
}

type feedbackReq struct {
	Feedback string `json:"feedback"`
}

type taskResp struct {
	ID               uint64  `json:"id"`
	CreatorID        uint64  `json:"creator_id"`
	AssigneeID       uint64  `json:"assignee_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Deadline         string  `json:"deadline"`
	TokenValue       uint32  `json:"token_value"`
	Status           string  `json:"status"`
	DirectorApproved bool    `json:"director_approved"`
	SubmittedAt      *string `json:"submitted_at,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	SubmissionNote   *string `json:"submission_note,omitempty"`
	AdminFeedback    *string `json:"admin_feedback,omitempty"`
	OriginalDeadline *string `json:"original_deadline,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type awardResp struct {
	OnTime bool   `json:"on_time"`
	Base   uint32 `json:"base"`
	Bonus  uint32 `json:"bonus"`
	Total  uint32 `json:"total"`
	Reason string `json:"reason"`
}

func isoTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}

func toTaskResp(t model.Task) taskResp {
	return taskResp{
		ID:               t.ID,
		CreatorID:        t.CreatorID,
		AssigneeID:       t.AssigneeID,
		Title:            t.Title,
		Description:      t.Description,
		Deadline:         isoTime(t.Deadline),
		TokenValue:       t.TokenValue,
		Status:           t.Status,
		DirectorApproved: t.DirectorApproved,
		SubmittedAt:      isoTimePtr(t.SubmittedAt),
		ApprovedAt:       isoTimePtr(t.ApprovedAt),
		SubmissionNote:   t.SubmissionNote,
		AdminFeedback:    t.AdminFeedback,
		OriginalDeadline: isoTimePtr(t.OriginalDeadline),
		CreatedAt:        isoTime(t.CreatedAt),
		UpdatedAt:        isoTime(t.UpdatedAt),
	}
}

func toTaskList(tasks []model.Task) []taskResp {
	out := make([]taskResp, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResp(t))
	}
	return out
}

func parseDeadline(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// List handles GET /v1/tasks. Users see their approved assignments;
// staff see everything. ?force=true bypasses the cache after a
// mutation or a realtime nudge.
func (h *TaskHandler) List(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tasks, err := h.Tasks.List(ctx, act, c.QueryParam("force") == "true")
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskList(tasks))
}

// Get handles GET /v1/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
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

	t, err := h.Tasks.Get(ctx, act, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// Create handles POST /v1/tasks (Admin/Director).
func (h *TaskHandler) Create(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	deadline, ok := parseDeadline(req.Deadline)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "deadline must be RFC3339"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.Create(ctx, act, service.CreateTaskInput{
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		TokenValue:  req.TokenValue,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, toTaskResp(t))
}

// Edit handles PATCH /v1/tasks/:id (Admin/Director, Pending only). An
// Admin edit drops the director approval so the task re-enters the gate.
func (h *TaskHandler) Edit(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req editTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := service.EditTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		TokenValue:  req.TokenValue,
	}
	if req.Deadline != nil {
		d, ok := parseDeadline(*req.Deadline)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "deadline must be RFC3339"})
		}
		in.Deadline = &d
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.Edit(ctx, act, id, in)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// Delete handles DELETE /v1/tasks/:id (Admin/Director).
func (h *TaskHandler) Delete(c echo.Context) error {
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

	if err := h.Tasks.Delete(ctx, act, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DirectorApprove handles POST /v1/tasks/:id/director-approve
// (Director only).
func (h *TaskHandler) DirectorApprove(c echo.Context) error {
	return h.simpleTransition(c, func(ctx echo.Context, act service.Actor, id uint64) (model.Task, error) {
		cctx, cancel := reqCtx(ctx)
		defer cancel()
		return h.Tasks.DirectorApprove(cctx, act, id)
	})
}

// Submit handles POST /v1/tasks/:id/submit: the assignee marks their
// task done and it enters review.
func (h *TaskHandler) Submit(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req submitTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.MarkDone(ctx, act, id, req.Note)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// Approve handles POST /v1/tasks/:id/approve (Admin/Director): the
// reviewed task completes and the award is paid. The response carries
// the award breakdown so the reviewer sees what was credited.
func (h *TaskHandler) Approve(c echo.Context) error {
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

	t, award, err := h.Tasks.ReviewApprove(ctx, act, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"task": toTaskResp(t),
		"award": awardResp{
			OnTime: award.OnTime,
			Base:   award.Base,
			Bonus:  award.Bonus,
			Total:  award.Total,
			Reason: award.Reason,
		},
	})
}

// Reject handles POST /v1/tasks/:id/reject (Admin/Director).
func (h *TaskHandler) Reject(c echo.Context) error {
	return h.simpleTransition(c, func(ctx echo.Context, act service.Actor, id uint64) (model.Task, error) {
		cctx, cancel := reqCtx(ctx)
		defer cancel()
		return h.Tasks.ReviewReject(cctx, act, id)
	})
}

// Reassign handles POST /v1/tasks/:id/reassign (Admin/Director).
func (h *TaskHandler) Reassign(c echo.Context) error {
	return h.simpleTransition(c, func(ctx echo.Context, act service.Actor, id uint64) (model.Task, error) {
		cctx, cancel := reqCtx(ctx)
		defer cancel()
		return h.Tasks.Reassign(cctx, act, id)
	})
}

// Extend handles POST /v1/tasks/:id/extend (Admin/Director).
func (h *TaskHandler) Extend(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req extendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	deadline, ok := parseDeadline(req.Deadline)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "deadline must be RFC3339"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.ExtendDeadline(ctx, act, id, deadline)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// Feedback handles POST /v1/tasks/:id/feedback (Admin/Director).
func (h *TaskHandler) Feedback(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req feedbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.GiveFeedback(ctx, act, id, req.Feedback)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// simpleTransition factors the no-body transition endpoints.
func (h *TaskHandler) simpleTransition(c echo.Context, fn func(echo.Context, service.Actor, uint64) (model.Task, error)) error {
	act, err := actor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := fn(c, act, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}
