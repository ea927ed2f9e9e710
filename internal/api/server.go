package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/casperlundberg/offload-autoscale-env/internal/config"
	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/internal/metrics"
	"github.com/casperlundberg/offload-autoscale-env/internal/simulation"
	"github.com/casperlundberg/offload-autoscale-env/pkg/baseline"
	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

const (
	defaultSlotLimit    = 1000
	defaultOverviewSize = 100
)

// Server represents the API server
type Server struct {
	router   *gin.Engine
	repo     *database.Repository
	registry *prometheus.Registry
	recorder *metrics.Recorder
	logger   *zap.Logger
	server   config.ServerConfig
	params   env.Parameters
	sim      config.SimulationConfig
}

// NewServer creates a new API server. Runs started over HTTP use the
// parameters of cfg unless the request overrides them.
func NewServer(repo *database.Repository, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:   router,
		repo:     repo,
		registry: registry,
		recorder: recorder,
		logger:   logger,
		server:   cfg.Server,
		params:   cfg.Parameters,
		sim:      cfg.Simulation,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.router.Group("/api/v1")

	api.GET("/health", s.healthCheck)
	api.GET("/overview", s.getOverview)

	// Run endpoints
	api.POST("/runs", s.createRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.DELETE("/runs/:id", s.deleteRun)

	api.GET("/runs/:id/slots", s.getSlots)
	api.GET("/runs/:id/events", s.getEvents)
	api.GET("/runs/:id/summary", s.getRunSummary)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	return s.router.Run(":" + s.server.Port)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Handler implementations

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now(),
	})
}

type runRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Policy      string          `json:"policy" binding:"required"`
	Budget      float64         `json:"budget" binding:"gte=0"`
	Action      float64         `json:"action" binding:"gte=0,lte=1"`
	Slots       int             `json:"slots" binding:"required,gte=1"`
	Seed        uint64          `json:"seed"`
	Parameters  *env.Parameters `json:"parameters"`
}

func (s *Server) createRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := s.params
	if req.Parameters != nil {
		params = *req.Parameters
	}
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.server.MaxSlots > 0 && req.Slots > s.server.MaxSlots {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slots exceeds limit of " + strconv.Itoa(s.server.MaxSlots)})
		return
	}

	policy, err := baseline.New(req.Policy, baseline.Config{Budget: req.Budget, Action: req.Action, Seed: req.Seed})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := env.New(params, env.WithSeed(req.Seed), env.WithLogger(s.logger))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := req.Name
	if name == "" {
		name = policy.Name() + " run"
	}
	dbCollector, err := simulation.NewDBCollector(s.repo, simulation.RunMeta{
		Name:        name,
		Description: req.Description,
		Policy:      policy.Name(),
		Seed:        req.Seed,
		Slots:       req.Slots,
		Parameters:  params,
	}, s.sim.BatchSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	runner := simulation.NewRunner(e, policy,
		simulation.WithLogger(s.logger.With(zap.String("run_id", dbCollector.RunID()))),
		simulation.WithCollector(simulation.MultiCollector{
			dbCollector,
			simulation.NewMetricsCollector(s.recorder, policy.Name()),
		}))

	report, err := runner.Run(c.Request.Context(), req.Slots)
	if err != nil {
		_ = dbCollector.CollectEvent(req.Slots, database.EventRunFailed, simulation.SeverityError, err.Error(), nil)
		_ = dbCollector.Close(database.StatusFailed)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run_id": dbCollector.RunID()})
		return
	}
	if err := dbCollector.Close(database.StatusCompleted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run_id": dbCollector.RunID()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id": dbCollector.RunID(),
		"report": report,
	})
}

func (s *Server) getOverview(c *gin.Context) {
	policies := strings.Split(c.DefaultQuery("policies", baseline.NameFixed+","+baseline.NameMyopic), ",")

	slots, err := strconv.Atoi(c.DefaultQuery("slots", strconv.Itoa(defaultOverviewSize)))
	if err != nil || slots < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slots must be a positive integer"})
		return
	}
	if s.server.MaxSlots > 0 && slots > s.server.MaxSlots {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slots exceeds limit of " + strconv.Itoa(s.server.MaxSlots)})
		return
	}

	seed, err := strconv.ParseUint(c.DefaultQuery("seed", strconv.FormatUint(s.sim.Seed, 10)), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an unsigned integer"})
		return
	}

	budget, err := strconv.ParseFloat(c.DefaultQuery("budget", strconv.FormatFloat(s.sim.Budget, 'f', -1, 64)), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "budget must be a number"})
		return
	}

	reports, err := simulation.Compare(c.Request.Context(), simulation.CompareRequest{
		Parameters: s.params,
		Policies:   policies,
		Policy:     baseline.Config{Budget: budget, Action: s.sim.Action, Seed: seed},
		Slots:      slots,
		Seed:       seed,
	}, s.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots":   slots,
		"seed":    seed,
		"reports": reports,
	})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.repo.ListRuns(c.Query("policy"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		s.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) deleteRun(c *gin.Context) {
	if err := s.repo.DeleteRun(c.Param("id")); err != nil {
		s.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Run deleted"})
}

func (s *Server) getSlots(c *gin.Context) {
	limit := defaultSlotLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := s.repo.GetSlotRecords(c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (s *Server) getEvents(c *gin.Context) {
	events, err := s.repo.GetEvents(c.Param("id"), c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, events)
}

func (s *Server) getRunSummary(c *gin.Context) {
	summary, err := s.repo.GetRunSummary(c.Param("id"))
	if err != nil {
		s.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
