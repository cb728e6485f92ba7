package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctranslate/doctranslate/pkg/review"
	"github.com/doctranslate/doctranslate/pkg/runtime"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/workflow"
)

// runRequest is the body of POST /projects/:id/run. The id path param is
// used directly as the ProjectStore input path (spec.md §6's ProjectStore
// identifies projects by path, not a separate database id).
type runRequest struct {
	OutputPath string `json:"outputPath" binding:"required"`
}

// runHandler handles POST /projects/:id/run: starts a Manager.Run for the
// given project in the background, or 409s if one is already in flight.
func (s *Server) runHandler(c *gin.Context) {
	id := c.Param("id")

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if existing, ok := s.runs[id]; ok {
		existing.mu.Lock()
		status := existing.status
		existing.mu.Unlock()
		if status == "running" {
			s.mu.Unlock()
			c.JSON(http.StatusConflict, gin.H{"error": "run already in progress", "status": status})
			return
		}
	}

	r := &run{
		tracker: stats.New(),
		rt:      runtime.New(s.store),
		review:  review.New(),
		status:  "running",
	}
	r.hub = newHub()
	r.tracker.Subscribe(stats.SubscriberFunc(func(u stats.TaskUpdate) {
		r.hub.broadcast(wsMessage{Type: "progress", Data: u.Snapshot})
	}))
	r.review.Listen()
	s.runs[id] = r
	s.mu.Unlock()

	go s.runReviewRelay(r)
	go s.runWorkflow(id, r, req.OutputPath)

	c.JSON(http.StatusAccepted, gin.H{"status": "running"})
}

// runWorkflow drives one Manager.Run to completion and records the outcome
// on r, then closes the stream hub so connected clients see the run end.
func (s *Server) runWorkflow(id string, r *run, outputPath string) {
	mgr := workflow.New(workflow.Config{
		Store:        s.store,
		ProjectStore: s.projectStore,
		LLM:          s.llm,
		NER:          s.ner,
		Runtime:      r.rt,
		Review:       r.review,
		Stats:        r.tracker,
		Platform:     s.platform,
		Workflow:     s.workflowCfg,
	})

	result, err := mgr.Run(context.Background(), id, outputPath)

	r.mu.Lock()
	r.result = result
	r.err = err
	switch {
	case err != nil:
		r.status = "failed"
	case result != nil && result.Cancelled:
		r.status = "cancelled"
	default:
		r.status = "completed"
	}
	r.mu.Unlock()

	if err != nil {
		slog.Warn("workflow run failed", "project_id", id, "error", err)
	}
	r.hub.broadcast(wsMessage{Type: "done", Data: gin.H{"status": r.status}})
	r.hub.closeAll()
}

// runReviewRelay forwards every review.Task the Coordinator produces onto
// the run's stream as a "review_request" message, so an operator watching
// the WebSocket feed sees pending review batches without a separate poll
// endpoint.
func (s *Server) runReviewRelay(r *run) {
	for task := range r.review.Tasks() {
		r.hub.broadcast(wsMessage{Type: "review_request", Data: task})
	}
}

// progressHandler handles GET /projects/:id/progress: the run status and
// latest Tracker snapshot, plus the final Result (or error) once the run
// has finished.
func (s *Server) progressHandler(c *gin.Context) {
	r, ok := s.getRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run for this project"})
		return
	}

	r.mu.Lock()
	status, result, runErr := r.status, r.result, r.err
	r.mu.Unlock()

	resp := gin.H{"status": status, "snapshot": r.tracker.Snapshot()}
	if result != nil {
		resp["result"] = result
	}
	if runErr != nil {
		resp["error"] = runErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// cancelHandler handles POST /projects/:id/cancel: raises the run's stop
// flag, checked at the top of every stage and chunk sub-step (spec.md §5).
func (s *Server) cancelHandler(c *gin.Context) {
	r, ok := s.getRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run for this project"})
		return
	}
	r.rt.Cancel()
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}
