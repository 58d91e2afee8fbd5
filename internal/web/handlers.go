package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/estateops/estatecrm/internal/activity"
	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
	"github.com/estateops/estatecrm/internal/gcal"
	"github.com/estateops/estatecrm/internal/scheduler"
	syncengine "github.com/estateops/estatecrm/internal/sync"
)

const oauthStateTTL = 10 * time.Minute

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	cfg       *config.Config
	db        *db.DB
	engine    *syncengine.Engine
	scheduler *scheduler.Scheduler
	tracker   *activity.Tracker
	oauth     *gcal.OAuthFlow

	// Pending OAuth state for the calendar authorization bootstrap.
	// There is a single shared team account, so one slot is enough.
	stateMu      sync.Mutex
	pendingState string
	stateExpiry  time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	cfg *config.Config,
	database *db.DB,
	engine *syncengine.Engine,
	sched *scheduler.Scheduler,
	tracker *activity.Tracker,
	oauth *gcal.OAuthFlow,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		db:        database,
		engine:    engine,
		scheduler: sched,
		tracker:   tracker,
		oauth:     oauth,
	}
}

// HealthCheck reports service and database health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GoogleAuthorize starts the calendar authorization flow for the
// shared team account.
func (h *Handlers) GoogleAuthorize(c *gin.Context) {
	state, err := generateState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate state"})
		return
	}

	h.stateMu.Lock()
	h.pendingState = state
	h.stateExpiry = time.Now().Add(oauthStateTTL)
	h.stateMu.Unlock()

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// GoogleCallback completes the authorization flow and stores the team
// account credentials.
func (h *Handlers) GoogleCallback(c *gin.Context) {
	state := c.Query("state")

	h.stateMu.Lock()
	valid := state != "" && state == h.pendingState && time.Now().Before(h.stateExpiry)
	h.pendingState = ""
	h.stateMu.Unlock()

	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization failed: " + errParam})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	account, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeError(err, "Failed to exchange authorization code")})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Calendar authorized",
		"email":   account.Email,
	})
}

// GoogleStatus reports whether the team account is connected and when
// its access token expires.
func (h *Handlers) GoogleStatus(c *gin.Context) {
	account, err := h.db.GetTeamAccount(h.cfg.Google.TeamAccountEmail)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}

	resp := gin.H{
		"connected": true,
		"email":     account.Email,
	}
	if account.TokenExpiry != nil {
		resp["token_expires_in"] = fmt.Sprintf("%v", time.Until(*account.TokenExpiry).Round(time.Second))
	}
	c.JSON(http.StatusOK, resp)
}

func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
