package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handlePing returns a simple liveness check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "lobbywire",
	})
}
