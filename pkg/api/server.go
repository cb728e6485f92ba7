// Package api provides the HTTP/WebSocket operator surface (SPEC_FULL.md
// §13): starting and resuming workflow runs, streaming their progress, and
// forwarding human review decisions — the ambient transport spec.md's
// Non-goals never exclude.
//
// Route shape grounded on the teacher's gin-based pkg/api/handlers.go; the
// per-run progress stream is grounded on pkg/api/websocket.go's WSHub,
// generalized from a single global hub broadcasting session events to one
// hub per in-flight run broadcasting stats.TaskUpdate events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/doctranslate/doctranslate/pkg/config"
	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/ner"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
	"github.com/doctranslate/doctranslate/pkg/review"
	"github.com/doctranslate/doctranslate/pkg/runtime"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
	"github.com/doctranslate/doctranslate/pkg/workflow"
)

// Server is the HTTP API server driving WorkflowManager runs.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	store        store.Store
	projectStore projectstore.Store
	llm          llmclient.Client
	ner          ner.Provider
	platform     llmclient.PlatformConfig
	workflowCfg  config.Config

	mu   sync.Mutex
	runs map[string]*run
}

// run is the server's bookkeeping for one in-flight or completed project
// run: its own Tracker/Runtime/Coordinator (so two projects running at once
// never share cancellation state) plus the broadcast hub for its stream.
type run struct {
	tracker *stats.Tracker
	rt      *runtime.Runtime
	review  *review.Coordinator
	hub     *hub

	mu     sync.Mutex
	status string // "running", "completed", "failed", "cancelled"
	result *workflow.Result
	err    error
}

// NewServer creates an API server. platform/workflowCfg are used as the
// default Manager configuration for every run; store/projectStore/llm/ner
// are the shared dependencies every run's Manager is built from.
func NewServer(st store.Store, ps projectstore.Store, llm llmclient.Client, nerProvider ner.Provider, platform llmclient.PlatformConfig, workflowCfg config.Config) *Server {
	s := &Server{
		engine:       gin.Default(),
		store:        st,
		projectStore: ps,
		llm:          llm,
		ner:          nerProvider,
		platform:     platform,
		workflowCfg:  workflowCfg,
		runs:         map[string]*run{},
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers every route named in SPEC_FULL.md §13.
func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthHandler)

	v1 := s.engine.Group("/projects")
	v1.POST("/:id/run", s.runHandler)
	v1.GET("/:id/progress", s.progressHandler)
	v1.GET("/:id/stream", s.streamHandler)
	v1.POST("/:id/review/:taskId", s.reviewHandler)
	v1.POST("/:id/cancel", s.cancelHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) getRun(id string) (*run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	return r, ok
}

func (s *Server) errNotFound(id string) error {
	return fmt.Errorf("no run for project %q", id)
}
