package web

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes.
func SetupRoutes(r *gin.Engine, h *Handlers, rps float64, burst int) {
	// Health endpoint (no rate limit)
	r.GET("/health", h.HealthCheck)

	// Calendar authorization bootstrap with strict rate limiting
	authRateLimiter := RateLimiter(5, 10) // 5 requests/sec, burst of 10
	authGroup := r.Group("/auth")
	authGroup.Use(authRateLimiter)
	{
		authGroup.GET("/google", h.GoogleAuthorize)
		authGroup.GET("/google/callback", h.GoogleCallback)
		authGroup.GET("/google/status", h.GoogleStatus)
	}

	// API routes with rate limiting and content-type validation
	apiGroup := r.Group("/api")
	apiGroup.Use(RateLimiter(rps, burst))
	apiGroup.Use(RequireJSONContentType())
	{
		apiGroup.GET("/agents", h.APIListAgents)
		apiGroup.POST("/agents", h.APICreateAgent)
		apiGroup.GET("/agents/:id", h.APIGetAgent)
		apiGroup.PUT("/agents/:id", h.APIUpdateAgent)
		apiGroup.DELETE("/agents/:id", h.APIDeleteAgent)

		apiGroup.GET("/contacts", h.APIListContacts)
		apiGroup.POST("/contacts", h.APICreateContact)
		apiGroup.GET("/contacts/:id", h.APIGetContact)
		apiGroup.PUT("/contacts/:id", h.APIUpdateContact)
		apiGroup.DELETE("/contacts/:id", h.APIDeleteContact)

		apiGroup.GET("/properties", h.APIListProperties)
		apiGroup.POST("/properties", h.APICreateProperty)
		apiGroup.GET("/properties/:id", h.APIGetProperty)
		apiGroup.PUT("/properties/:id", h.APIUpdateProperty)
		apiGroup.DELETE("/properties/:id", h.APIDeleteProperty)

		apiGroup.GET("/appointments", h.APIListAppointments)
		apiGroup.POST("/appointments", h.APICreateAppointment)
		apiGroup.GET("/appointments/:id", h.APIGetAppointment)
		apiGroup.PUT("/appointments/:id", h.APIUpdateAppointment)
		apiGroup.DELETE("/appointments/:id", h.APIDeleteAppointment)

		apiGroup.GET("/todos", h.APIListTodos)
		apiGroup.POST("/todos", h.APICreateTodo)
		apiGroup.PUT("/todos/:id", h.APIUpdateTodo)
		apiGroup.DELETE("/todos/:id", h.APIDeleteTodo)

		apiGroup.GET("/sync/logs", h.APISyncLogs)
		apiGroup.GET("/sync/activity", h.APISyncActivity)
	}

	// Sync triggers are network-heavy, so they get their own stricter limiter
	syncGroup := r.Group("/api/sync")
	syncGroup.Use(RateLimiter(2, 5)) // 2 requests/sec, burst of 5
	{
		syncGroup.POST("/push", h.APITriggerPush)
		syncGroup.POST("/import", h.APITriggerImport)
	}
}
