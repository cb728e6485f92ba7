package api

import "github.com/gin-gonic/gin"

// healthHandler handles GET /healthz, matching the teacher's
// pkg/api/handler_health.go shape: a minimal liveness response plus a count
// of in-flight runs.
func (s *Server) healthHandler(c *gin.Context) {
	s.mu.Lock()
	running := 0
	for _, r := range s.runs {
		r.mu.Lock()
		if r.status == "running" {
			running++
		}
		r.mu.Unlock()
	}
	total := len(s.runs)
	s.mu.Unlock()

	c.JSON(200, gin.H{
		"status":     "healthy",
		"activeRuns": running,
		"totalRuns":  total,
	})
}
