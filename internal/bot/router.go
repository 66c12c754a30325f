package bot

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the Slack-facing HTTP surface. All Slack routes sit
// behind signing-secret verification.
func NewRouter(h *Handler, signingSecret string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	slackGroup := r.Group("/slack", VerifySlackSignature(signingSecret))
	slackGroup.POST("/events", h.Events)
	slackGroup.POST("/commands", h.Commands)
	slackGroup.POST("/interactions", h.Interactions)

	return r
}
