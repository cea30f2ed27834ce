// Package handler defines the HTTP handlers for the dashboard API.
// Handlers stay thin: they decode and minimally validate the request,
// resolve the authenticated actor from the JWT claims, call one service
// operation with a bounded timeout, and translate the typed error that
// comes back into a status code. No business rule lives here.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/revanthm1902/task-token-tracker/internal/repository"
	"github.com/revanthm1902/task-token-tracker/internal/service"
)

// dbTimeout bounds every persistence call made on behalf of a request.
// A timeout surfaces as a generic retryable failure; mutating
// operations are never retried automatically (see writeErr).
const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// actor resolves the authenticated principal from the claims JWTAuth
// stored in the context. The sub claim arrives as a float64 because
// jwt.MapClaims decodes JSON numbers that way.
func actor(c echo.Context) (service.Actor, error) {
	role, ok := c.Get("role").(string)
	if !ok || role == "" {
		return service.Actor{}, errors.New("missing role claim")
	}
	switch v := c.Get("user_id").(type) {
	case float64:
		return service.Actor{ID: uint64(v), Role: role}, nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return service.Actor{}, err
		}
		return service.Actor{ID: id, Role: role}, nil
	}
	return service.Actor{}, errors.New("missing subject claim")
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// queryInt parses an optional integer query parameter; absent or
// malformed values come back as 0 and the callee applies its default.
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

// writeErr maps a service or repository error onto an HTTP response.
// The taxonomy: validation 400, authorization 403, missing row 404,
// state-guard and uniqueness conflicts 409, payout partial failure a
// distinct 500 body (the task IS completed; the caller must not re-run
// the approval), anything else a generic 500 the user may retry
// manually after re-fetching.
func writeErr(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, service.ErrNotAllowed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict: not in a valid state for this operation"})
	case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrProfileExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
	case errors.Is(err, service.ErrPayoutFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "task completed but token payout failed; do not re-approve, contact an administrator",
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}
