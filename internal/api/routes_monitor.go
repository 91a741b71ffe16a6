package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGetStatus returns connection counts and the latest health sample.
func (s *Server) handleGetStatus(c *gin.Context) {
	resp := gin.H{"connections": s.registry.Count()}
	if s.health != nil {
		resp["health"] = s.health.Latest()
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetConnections returns every currently tracked connection.
func (s *Server) handleGetConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": s.registry.All()})
}

// handleGetPrime returns the hex of the Diffie-Hellman prime currently in
// use, so an operator can copy it into config.Crypto.PinnedPrimeHex.
func (s *Server) handleGetPrime(c *gin.Context) {
	if s.ActivePrime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active crypto group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prime_hex": s.ActivePrime()})
}

// handleRotatePrime generates a fresh Diffie-Hellman group, pins it, and
// returns the new prime hex. Existing connections are unaffected; only
// connections accepted after rotation use the new group.
func (s *Server) handleRotatePrime(c *gin.Context) {
	if s.RotatePrime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prime rotation not available"})
		return
	}
	primeHex, err := s.RotatePrime()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prime_hex": primeHex})
}

// handleGetAudit returns the most recent connection audit log entries.
func (s *Server) handleGetAudit(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []any{}})
		return
	}
	entries, err := s.store.RecentEvents(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
