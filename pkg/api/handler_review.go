package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctranslate/doctranslate/pkg/review"
)

// reviewHandler handles POST /projects/:id/review/:taskId: forwards the
// operator's decisions to the run's ReviewCoordinator, unblocking whichever
// translation worker is waiting in RequestDecision (spec.md §4.9). taskId
// is accepted for REST addressability but not separately validated — the
// Coordinator hands off exactly one Task at a time, so the decisions always
// apply to whichever batch is currently pending.
func (s *Server) reviewHandler(c *gin.Context) {
	r, ok := s.getRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run for this project"})
		return
	}

	var decisions []review.Decision
	if err := c.ShouldBindJSON(&decisions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := r.review.Respond(c.Request.Context(), decisions); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
