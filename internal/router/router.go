package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing
	"github.com/redis/go-redis/v9"

	"github.com/revanthm1902/task-token-tracker/internal/config"
	"github.com/revanthm1902/task-token-tracker/internal/handler"
	"github.com/revanthm1902/task-token-tracker/internal/middleware"
	"github.com/revanthm1902/task-token-tracker/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. The health check is used by load
// balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints. Sign-in, refresh and
// logout live under /v1/auth and take no JWT; /v1/me and the
// self-service password change require a valid access token. There is
// no registration route: accounts exist only through provisioning.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// Refresh rotates the presented refresh token and returns a new pair.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	// Changing the own password clears the temporary-password flag and
	// revokes every other session.
	auth.POST("/me/password", a.ChangePassword)
}

// RegisterTasks registers the task lifecycle endpoints. Every route
// requires a session; the split between the any-role group and the
// reviewer group mirrors the service-layer guards, which re-check each
// rule, so the middleware here only provides the early 403.
func RegisterTasks(e *echo.Echo, t *handler.TaskHandler, jwtSecret string) {
	auth := e.Group("/v1/tasks")
	auth.Use(middleware.JWTAuth(jwtSecret))

	// Visible to every role: the list and detail views are scoped by
	// role inside the service, and submit is further restricted to the
	// task's assignee by the guarded update.
	auth.GET("", t.List)
	auth.GET("/:id", t.Get)
	auth.POST("/:id/submit", t.Submit)

	// Review operations require Admin or Director.
	staff := auth.Group("", middleware.RequireRole(model.RoleAdmin, model.RoleDirector))
	staff.POST("", t.Create)
	staff.PATCH("/:id", t.Edit)
	staff.DELETE("/:id", t.Delete)
	staff.POST("/:id/approve", t.Approve)
	staff.POST("/:id/reject", t.Reject)
	staff.POST("/:id/reassign", t.Reassign)
	staff.POST("/:id/extend", t.Extend)
	staff.POST("/:id/feedback", t.Feedback)

	// The approval gate is the Director's alone.
	director := auth.Group("", middleware.RequireRole(model.RoleDirector))
	director.POST("/:id/director-approve", t.DirectorApprove)
}

// RegisterUsers registers account administration plus the caller's own
// ledger. Deletion is open to both staff roles at the route level; the
// service decides who may delete whom.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/me/ledger", u.MyLedger)

	staff := auth.Group("/users", middleware.RequireRole(model.RoleAdmin, model.RoleDirector))
	staff.GET("", u.List)
	staff.POST("", u.Create)
	staff.DELETE("/:id", u.Delete)
	staff.POST("/:id/tokens", u.GiveTokens)
}

// RegisterActivity registers the audit feed, readable by every
// authenticated role.
func RegisterActivity(e *echo.Echo, a *handler.ActivityHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/activity", a.List)
}

// RegisterResets registers the password-reset flow. Submission is the
// one anonymous endpoint in the API and sits behind the Redis token
// bucket; the queue and its resolution are Director-only.
func RegisterResets(e *echo.Echo, r *handler.ResetHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/v1/password-resets", r.Submit, middleware.NewTokenBucket(rl, rdb))

	director := e.Group("/v1/password-resets")
	director.Use(middleware.JWTAuth(jwtSecret))
	director.Use(middleware.RequireRole(model.RoleDirector))
	director.GET("", r.ListPending)
	director.POST("/:id/resolve", r.Resolve)
}
